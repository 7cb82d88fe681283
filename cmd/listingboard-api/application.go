package main

import (
	"context"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/backup"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/config"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/database"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/logging"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// application bundles what every command needs: config, logger, an initialised
// adapter and the services built on it.
type application struct {
	config    config.AppConfig
	logger    *zap.Logger
	adapter   *database.Adapter
	links     *links.Service
	customers *customers.Service
	backups   *backup.Service
}

func openApplication(ctx context.Context) (*application, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogFormat)
	if err != nil {
		return nil, err
	}

	adapter, err := database.Open(database.Config{
		URL:          appConfig.DatabaseURL,
		Path:         appConfig.DatabasePath,
		MaxOpenConns: appConfig.DatabaseMaxOpenConns,
		Logger:       logger,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	app := &application{config: appConfig, logger: logger, adapter: adapter}
	if err := adapter.InitSchema(ctx, database.SchemaOptions{
		DefaultCustomerName: appConfig.DefaultCustomerName,
		Logger:              logger,
	}); err != nil {
		app.Close()
		return nil, err
	}

	if err := app.buildServices(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (app *application) buildServices() error {
	var err error
	app.links, err = links.NewService(links.ServiceConfig{
		Connector: app.adapter,
		Clock:     time.Now,
		Logger:    app.logger,
	})
	if err != nil {
		return err
	}
	app.customers, err = customers.NewService(customers.ServiceConfig{
		Connector:   app.adapter,
		DefaultName: app.config.DefaultCustomerName,
		Logger:      app.logger,
	})
	if err != nil {
		return err
	}
	app.backups, err = backup.NewService(backup.ServiceConfig{
		Connector:           app.adapter,
		Columns:             app.adapter,
		Clock:               time.Now,
		DefaultCustomerName: app.config.DefaultCustomerName,
		Transactional:       app.config.TransactionalRestore,
		Logger:              app.logger,
	})
	return err
}

func (app *application) Close() {
	if err := app.adapter.Close(); err != nil {
		app.logger.Warn("closing database failed", zap.Error(err))
	}
	_ = app.logger.Sync()
}
