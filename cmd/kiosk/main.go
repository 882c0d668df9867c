package main

import (
	"os"
	"syscall"

	"github.com/caisse-next/internal/app"
	"github.com/caisse-next/internal/config"
	"github.com/caisse-next/internal/logger"
)

func main() {
	// 加载配置；控制台占用 stdout，日志默认写 stderr
	cfg := config.Load()
	logOptions := cfg.Log.ToLoggerOptions()
	logOptions.Output = cfg.Kiosk.LogOutput
	logger.Init(cfg.Server.Mode, logOptions)
	stdLog := logger.StdLogger()

	if err := app.RunKiosk(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		In:      os.Stdin,
		Out:     os.Stdout,
	}); err != nil {
		stdLog.Fatalf("终端运行失败: %v", err)
	}
}
