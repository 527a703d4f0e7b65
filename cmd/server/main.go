package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/todo_api/internal/config"
	"github.com/Skotchmaster/todo_api/internal/es"
	"github.com/Skotchmaster/todo_api/internal/handlers"
	"github.com/Skotchmaster/todo_api/internal/logging"
	"github.com/Skotchmaster/todo_api/internal/mail"
	loggingmw "github.com/Skotchmaster/todo_api/internal/middleware/logging"
	"github.com/Skotchmaster/todo_api/internal/mykafka"
	"github.com/Skotchmaster/todo_api/internal/token"
	httpserver "github.com/Skotchmaster/todo_api/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB()
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	tokens := &token.Service{
		Secret:     []byte(configuration.JWT_SECRET),
		AccessTTL:  configuration.ACCESS_TOKEN_TTL,
		RefreshTTL: configuration.REFRESH_TOKEN_TTL,
	}
	reset := &token.ResetGenerator{
		Secret: []byte(configuration.JWT_SECRET),
		TTL:    configuration.RESET_TOKEN_TTL,
	}

	var prod *mykafka.Producer
	if configuration.KAFKA_ADDRESS != "" {
		prod, err = mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})
		if err != nil {
			log.Fatal(err)
		}
	}

	var searchHandler *handlers.SearchHandler
	if configuration.ES_URL != "" {
		esClient, err := es.NewClient(configuration)
		if err != nil {
			log.Fatal(err)
		}
		searchHandler = &handlers.SearchHandler{ES: esClient, Index: "todo"}
	}

	var mailer mail.Mailer
	if configuration.SMTP_HOST != "" {
		mailer = mail.NewSMTPMailer(
			configuration.SMTP_HOST,
			configuration.SMTP_PORT,
			configuration.SMTP_USER,
			configuration.SMTP_PASSWORD,
		)
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:     db,
		Tokens: tokens,
		AuthHandler: &handlers.AuthHandler{
			DB:        db,
			Tokens:    tokens,
			Reset:     reset,
			Producer:  prod,
			Mailer:    mailer,
			EmailFrom: configuration.EMAIL_FROM,
			BaseURL:   configuration.BASE_URL,
		},
		TodoHandler:   &handlers.TodoHandler{DB: db, Producer: prod},
		SearchHandler: searchHandler,
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
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

	if prod != nil {
		if err := prod.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}

	log.Println("shutdown complete")
}
