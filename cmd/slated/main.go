// slated runs the slate entity API server.
package main

import (
	"os"
	"strconv"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	gormlogger "gorm.io/gorm/logger"

	"github.com/slatehq/slate/internal/api/middleware"
	"github.com/slatehq/slate/internal/db"
	"github.com/slatehq/slate/internal/db/repos"
	"github.com/slatehq/slate/internal/logger"
	"github.com/slatehq/slate/pkg/api/v1/handlers"
	"github.com/slatehq/slate/pkg/api/v1/routes"
)

// serverVersion is reported by the info method.
var serverVersion = []int{2, 4, 0}

// flag names
const (
	flagPort = "port"
)

// environment variable names
const (
	envDBHost     = "SLATE_DB_HOST"
	envDBPort     = "SLATE_DB_PORT"
	envDBUser     = "SLATE_DB_USER"
	envDBPassword = "SLATE_DB_PASSWORD"
	envDBName     = "SLATE_DB_NAME"
	envScriptName = "SLATE_SCRIPT_NAME"
	envScriptKey  = "SLATE_SCRIPT_KEY"
)

var port string

var rootCmd = &cobra.Command{
	Use:   "slated",
	Short: "slated - the slate entity API server",
	Long:  "slated serves the api3 entity endpoint used by production-tracking clients.",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&port, flagPort, "p", routes.DefaultPort, "Port to listen on")
}

func serve() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logger.Initialize()

	dbPort := db.DefaultPort
	if v := os.Getenv(envDBPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			logger.Fatalf("invalid %s: %v", envDBPort, err)
		}
		dbPort = p
	}

	gdb, err := db.New(db.Options{
		Host:     os.Getenv(envDBHost),
		User:     os.Getenv(envDBUser),
		Password: os.Getenv(envDBPassword),
		DBName:   os.Getenv(envDBName),
		Port:     dbPort,
		LogLevel: gormlogger.Warn,
	})
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	app.Use(middleware.Logger())

	rpcHandler := &handlers.RPCHandler{
		Records:    repos.NewRecordRepository(gdb),
		ScriptName: os.Getenv(envScriptName),
		ScriptKey:  os.Getenv(envScriptKey),
		Version:    serverVersion,
	}
	routes.RegisterRoutes(app, rpcHandler)

	logger.Infof("slated listening on :%s", port)
	return app.Listen(":" + port)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"message": err.Error()})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Fatalf("%v", err)
	}
}
