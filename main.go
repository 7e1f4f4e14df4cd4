// 命令行入口：
// - 监听中断信号，取消 watch 等长时间运行的命令
// - 命令树与依赖装配见 internal/cli
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-publicist/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		// 失败已经通过通知输出，这里只设置退出码
		if !errors.Is(err, cli.ErrFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}
