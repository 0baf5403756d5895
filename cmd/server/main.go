package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohamadalijomaa25/lezedora/internal/config"
	"github.com/mohamadalijomaa25/lezedora/internal/es"
	"github.com/mohamadalijomaa25/lezedora/internal/handlers"
	orderhttp "github.com/mohamadalijomaa25/lezedora/internal/handlers/order"
	"github.com/mohamadalijomaa25/lezedora/internal/httpserver"
	"github.com/mohamadalijomaa25/lezedora/internal/logging"
	authmw "github.com/mohamadalijomaa25/lezedora/internal/middleware/auth"
	loggingmw "github.com/mohamadalijomaa25/lezedora/internal/middleware/logging"
	"github.com/mohamadalijomaa25/lezedora/internal/mykafka"
	"github.com/mohamadalijomaa25/lezedora/internal/order"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	jwtSecret := []byte(configuration.JWT_SECRET)

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	} else {
		logger.Warn("KAFKA_ADDRESS not set, event publishing disabled")
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: "product"}
	} else {
		logger.Warn("ES_URL not set, search disabled")
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	orderSvc := &order.Service{DB: db}

	deps := httpserver.Deps{
		DB:                db,
		Auth:              &authmw.Middleware{JWTSecret: jwtSecret},
		AuthHandler:       &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, Producer: prod},
		CollectionHandler: &handlers.CollectionHandler{DB: db, Producer: prod},
		ProductHandler:    &handlers.ProductHandler{DB: db, Producer: prod},
		SearchHandler:     searchHandler,
		OrderHandler:      &orderhttp.OrderHandler{Svc: orderSvc, Producer: prod},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.SERVER_PORT),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
