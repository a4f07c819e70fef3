package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/debug"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	blockport "github.com/blockport/blockport-go"
	"github.com/blockport/blockport-go/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	if len(args) == 0 {
		usage()
		return nil
	}

	c := config.New()

	level := zerolog.InfoLevel
	if c.GetEnv() == "DEV" {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	client, err := blockport.New(c, blockport.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("assembling client: %w", err)
	}

	ctx := context.Background()

	switch args[0] {
	case "login":
		return loginCmd(ctx, client, c, args[1:])
	case "whoami":
		return whoamiCmd(client)
	case "dashboard":
		return dashboardCmd(ctx, client)
	case "logout":
		client.Session.Logout(ctx)
		fmt.Println("Logged out.")
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loginCmd(ctx context.Context, client *blockport.Client, c config.Config, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	displayAppname(c.GetAppName())

	if err := client.Session.Login(ctx, *email, *password); err != nil {
		return fmt.Errorf("login failed: %s", client.Session.ErrorMessage())
	}

	user := client.Session.CurrentUser()
	fmt.Printf("Logged in as %s (%s)\n", user.FullName, user.Email)
	return nil
}

func whoamiCmd(client *blockport.Client) error {
	if !client.Session.IsAuthenticated() {
		fmt.Println("Not logged in.")
		return nil
	}
	user := client.Session.CurrentUser()
	fmt.Printf("%s <%s> role=%s\n", user.FullName, user.Email, user.Role)
	return nil
}

func dashboardCmd(ctx context.Context, client *blockport.Client) error {
	stats, err := client.API.Analytics().Dashboard(ctx)
	if err != nil {
		return fmt.Errorf("fetching dashboard: %w", err)
	}
	fmt.Printf("Active contracts: %d\n", stats.ActiveContracts)
	fmt.Printf("Open escrows:     %d\n", stats.OpenEscrows)
	fmt.Printf("Total volume:     %.2f\n", stats.TotalVolume)
	fmt.Printf("Pending actions:  %d\n", stats.PendingActions)
	return nil
}

func usage() {
	fmt.Println("usage: blockport <login|whoami|dashboard|logout> [flags]")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
