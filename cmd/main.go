package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anyproto/any-sync/app"
	"github.com/anyproto/any-sync/app/logger"
	"go.uber.org/zap"

	"github.com/openlearn/course-publish-server/assetcache"
	"github.com/openlearn/course-publish-server/catalog"
	"github.com/openlearn/course-publish-server/completion"
	"github.com/openlearn/course-publish-server/config"
	"github.com/openlearn/course-publish-server/contentstore"
	"github.com/openlearn/course-publish-server/courseapi"
	"github.com/openlearn/course-publish-server/db"
	"github.com/openlearn/course-publish-server/publish"
	"github.com/openlearn/course-publish-server/publish/reportrepo"
	"github.com/openlearn/course-publish-server/redisprovider"
	"github.com/openlearn/course-publish-server/store"
	"github.com/openlearn/course-publish-server/taskqueue"
	"github.com/openlearn/course-publish-server/uploader"
)

var log = logger.NewNamed("main")

// set by govvv ldflags
var (
	GitCommit, GitBranch, GitState, GitSummary, BuildDate string
	Version                                               = "dev"
)

var (
	flagConfigFile = flag.String("c", "etc/course-publish-server.yml", "path to config file")
	flagVersion    = flag.Bool("v", false, "show version and exit")
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("course-publish-server %s (%s, %s) built at %s\n", Version, GitSummary, GitBranch, BuildDate)
		return
	}

	conf, err := config.NewFromFile(*flagConfigFile)
	if err != nil {
		log.Fatal("can't open config file", zap.Error(err))
	}
	conf.Log.ApplyGlobal()

	log.Info("app started",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
		zap.String("state", GitState),
	)

	a := new(app.App)
	Bootstrap(a, conf)

	ctx := context.Background()
	if err = a.Start(ctx); err != nil {
		log.Fatal("can't start app", zap.Error(err))
	}

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGKILL, syscall.SIGTERM, syscall.SIGQUIT)
	sig := <-exit
	log.Info("received exit signal, stop app...", zap.String("signal", fmt.Sprint(sig)))

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err = a.Close(ctx); err != nil {
		log.Fatal("close error", zap.Error(err))
	}
	log.Info("goodbye!")
	time.Sleep(time.Second / 3)
}

// Bootstrap registers components in dependency order.
func Bootstrap(a *app.App, conf *config.Config) {
	a.Register(conf).
		Register(db.New()).
		Register(redisprovider.New()).
		Register(store.New()).
		Register(assetcache.New()).
		Register(taskqueue.New()).
		Register(contentstore.New()).
		Register(reportrepo.New()).
		Register(completion.New()).
		Register(uploader.New()).
		Register(catalog.New()).
		Register(publish.New()).
		Register(courseapi.New())
}
