package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/importer"
	"github.com/trezcool/resultportal/core/result"
	logsvc "github.com/trezcool/resultportal/services/logger"
	"github.com/trezcool/resultportal/storage"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	if err := promptStoreKey(conf, os.Stdout); err != nil {
		logger.Fatal("reading store API key", err)
	}

	// the CLI never migrates implicitly; `migrate up` does
	store, err := storage.Open(context.Background(), conf, false /* migrate */)
	if err != nil {
		logger.Fatal("opening store", err)
	}

	repo := result.NewRepository(store.Store)
	cli := commandLine{
		repo:      repo,
		resultSvc: result.NewService(repo),
		importSvc: importer.NewService(repo, logger, nil /* no import reports */, nil, conf.FrontendBaseURL),
		out:       os.Stdout,
	}
	if store.DB != nil {
		cli.db = store.DB.DB
	}

	code := 0
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		code = 1
	}
	if err = store.Close(); err != nil {
		logger.Error("closing store", err)
	}
	os.Exit(code)
}
