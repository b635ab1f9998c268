package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"defi-snapshot-xrd/internal/config"
	"defi-snapshot-xrd/internal/service"
	"defi-snapshot-xrd/internal/svc"
	"defi-snapshot-xrd/pkg/logger"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/snapshot.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()

	flag.Parse()

	var c config.SnapshotConfig
	conf.MustLoad(*configFile, &c)

	logger.Init(c.LogConf.ToLogOption())

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		panic(err)
	}
	defer serviceContext.Close()

	// 价格同步服务：给快照消息附带 USD 报价
	priceSyncService, err := service.NewPriceSyncService(
		&c.PriceServiceConf, serviceContext.QuoteHistory, serviceContext.QuoteCache)
	if err != nil {
		panic(err)
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(priceSyncService)
	sg.Add(service.NewSnapshotService(serviceContext))

	logx.Infof("Starting snapshot service")

	// 启动服务
	sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logx.Info("Shutting down services...")
	sg.Stop()
}
