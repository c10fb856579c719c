package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"miniFeed/crud"
	"miniFeed/database"
	"miniFeed/http"
	"miniFeed/storage"
)

// main is the app's entry point.
func main() {
	// Check if the flag "-prod" to has been provided. It means that we're running in production.
	productionBool := flag.Bool("prod", false, "Provide this flag in production to ensure that a .config.json file is provided before the application starts.")
	resetBool := flag.Bool("reset", false, "Drop all tables and migrate them again before starting. Deletes all data.")
	flag.Parse()

	// Load configuration from a .config.json file if present, otherwise use the default dev setup.
	// If *productionBool evaluates to true, that means we're in production. In that case the
	// .config.json file is required and the app will panic if no file is found.
	config := LoadConfig(*productionBool)

	// Open a database connection and execute migrations.
	dbConfig := config.Database
	db := database.NewDB(dbConfig.ConnectionInfo())
	db.MaxOpenConns = dbConfig.MaxOpenConns
	db.MaxIdleConns = dbConfig.MaxIdleConns
	db.ConnMaxLifetime = time.Duration(dbConfig.ConnMaxLifetime) * time.Second
	err := database.Open(db, config.IsProd())
	must(err)
	defer database.Close(db)
	if *resetBool {
		log.Println("Resetting the database")
		err = database.DestructiveReset(db)
	} else {
		err = database.Migrate(db)
	}
	must(err)

	// Start the crud services. Post images are kept on the local disk.
	services, err := crud.NewServices(
		db.Gorm,
		crud.WithUser(),
		crud.WithPost(storage.NewImageStore(config.ImagesDir)),
		crud.WithLike(),
	)
	must(err)

	// Set up a webserver.
	server := http.NewServer(config.HTTP(), services.User, services.Post, services.Like)

	// Serve the app until we're told to stop.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx); err != nil {
		log.Fatal(err)
	}
}

// must is a little helper for shortening the panic instruction.
func must(err error) {
	if err != nil {
		panic(err)
	}
}
