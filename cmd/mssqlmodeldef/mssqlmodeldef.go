package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/sqldef/modeldef"
	"github.com/sqldef/modeldef/database"
	"github.com/sqldef/modeldef/database/mssql"
	"github.com/sqldef/modeldef/model"
	"github.com/sqldef/modeldef/util"
	"golang.org/x/term"
)

var version string

type commandOptions struct {
	User        string   `short:"U" long:"user" description:"MSSQL user name" value-name:"user_name" default:"sa"`
	Password    string   `short:"P" long:"password" description:"MSSQL user password, overridden by $MSSQL_PWD" value-name:"password"`
	Host        string   `short:"h" long:"host" description:"Host to connect to the MSSQL server" value-name:"host_name" default:"127.0.0.1"`
	Port        uint     `short:"p" long:"port" description:"Port used for the connection" value-name:"port_num" default:"1433"`
	Prompt      bool     `long:"password-prompt" description:"Force MSSQL user password prompt"`
	File        []string `long:"file" description:"Read model definitions from the YAML file (repeatable)" value-name:"model_file" required:"true"`
	Config      string   `long:"config" description:"YAML file to specify: target_models, schema, concurrency" value-name:"config_file"`
	Models      []string `long:"model" description:"Migrate only the given model (repeatable)" value-name:"model_name"`
	Check       bool     `long:"check" description:"Exit with status 1 when any table needs migration, without changing anything"`
	AutoMigrate bool     `long:"automigrate" description:"Drop and recreate the tables of the models"`
	ForeignKeys bool     `long:"foreign-keys" description:"Only add missing foreign keys"`
	DryRun      bool     `long:"dry-run" description:"Don't run DDLs but just show them"`
	Debug       bool     `long:"debug" description:"Dump computed plans to stderr"`
	Help        bool     `long:"help" description:"Show this help"`
	Version     bool     `long:"version" description:"Show this version"`
}

// Return parsed options and the database to connect to
func parseOptions(args []string) (database.Config, *commandOptions) {
	var opts commandOptions

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options] db_name"
	args, err := parser.ParseArgs(args)

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if err != nil {
		log.Fatal(err)
	}

	if len(args) == 0 {
		fmt.Print("No database is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	} else if len(args) > 1 {
		fmt.Printf("Multiple databases are given: %v\n\n", args)
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	if countTrue(opts.Check, opts.AutoMigrate, opts.ForeignKeys) > 1 {
		fmt.Print("Only one of --check, --automigrate and --foreign-keys can be given\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	password, ok := os.LookupEnv("MSSQL_PWD")
	if !ok {
		password = opts.Password
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		password = string(pass)
	}

	config := database.Config{
		DbName:   args[0],
		User:     opts.User,
		Password: password,
		Host:     opts.Host,
		Port:     int(opts.Port),
	}
	return config, &opts
}

func countTrue(values ...bool) int {
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return n
}

func main() {
	util.InitSlog()

	config, opts := parseOptions(os.Args[1:])

	registry, err := model.LoadFiles(opts.File...)
	if err != nil {
		log.Fatalf("Failed to read '%v': %s", opts.File, err)
	}

	generatorConfig, err := database.ParseGeneratorConfig(opts.Config)
	if err != nil {
		log.Fatal(err)
	}

	db, err := mssql.NewDatabase(config, generatorConfig.DefaultSchema)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	options := &modeldef.Options{
		Models:      opts.Models,
		Check:       opts.Check,
		AutoMigrate: opts.AutoMigrate,
		ForeignKeys: opts.ForeignKeys,
		DryRun:      opts.DryRun,
		Debug:       opts.Debug,
		Config:      generatorConfig,
	}

	err = modeldef.Run(context.Background(), db, registry, options)
	if errors.Is(err, modeldef.ErrMigrationNeeded) {
		db.Close()
		os.Exit(1)
	}
	if err != nil {
		db.Close()
		log.Fatal(err)
	}
}
