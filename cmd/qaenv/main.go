package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/davoodharun/qaenv/internal/azure"
	"github.com/davoodharun/qaenv/internal/config"
	"github.com/davoodharun/qaenv/internal/git"
	"github.com/davoodharun/qaenv/internal/jira"
	"github.com/davoodharun/qaenv/internal/logger"
	"github.com/davoodharun/qaenv/internal/provisioner"
	"github.com/davoodharun/qaenv/internal/schema"
	"github.com/davoodharun/qaenv/internal/template"
	"github.com/davoodharun/qaenv/internal/validate"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	code       string
	verbose    bool
}

func main() {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "qaenv",
		Short:         "qaenv - per-branch QA environments on Azure Web Apps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Verbose = opts.verbose
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "path to qaenv.yaml")
	rootCmd.PersistentFlags().StringVar(&opts.code, "code", config.DefaultCode, "config code under azure")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "print debug output")

	// Initialize a new project with qaenv.yaml and the web app template
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample qaenv.yaml and the default web app template",
		RunE: func(cmd *cobra.Command, args []string) error {
			return template.InitProject(".", force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")

	nameCmd := &cobra.Command{
		Use:   "name",
		Short: "Print the environment name of the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(false)
			if err != nil {
				return err
			}
			fmt.Println(p.EnvironmentName())
			return nil
		},
	}

	existsCmd := &cobra.Command{
		Use:   "exists",
		Short: "Report whether the environment of the current branch exists",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(true)
			if err != nil {
				return err
			}
			session, err := p.Connect(cmd.Context())
			if err != nil {
				return err
			}
			exists, err := p.Exists(cmd.Context(), session, p.EnvironmentName())
			if err != nil {
				return err
			}
			fmt.Println(exists)
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the environment of the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(true)
			if err != nil {
				return err
			}
			session, err := p.Connect(cmd.Context())
			if err != nil {
				return err
			}
			return p.Create(cmd.Context(), session, p.Target())
		},
	}

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Re-apply the web app template to the environment of the current branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(true)
			if err != nil {
				return err
			}
			session, err := p.Connect(cmd.Context())
			if err != nil {
				return err
			}
			return p.Update(cmd.Context(), session, p.Target())
		},
	}

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the environment and write its variables file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(true)
			if err != nil {
				return err
			}
			result, err := p.Deploy(cmd.Context())
			if err != nil {
				return err
			}

			logger.Section("Environment " + result.Target.EnvironmentName)
			logger.Log("Web app:    %s", result.WebAppURL)
			logger.Log("Deployment: %s", result.DeploymentURL)
			logger.Log("Variables:  %s", result.VariablesPath)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the environment of the current branch and its database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(true)
			if err != nil {
				return err
			}
			_, err = p.Teardown(cmd.Context())
			return err
		},
	}

	varsCmd := &cobra.Command{
		Use:   "vars",
		Short: "Write the variables file without touching Azure",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := opts.provisioner(false)
			if err != nil {
				return err
			}
			path, err := p.WriteVariables(p.Target())
			if err != nil {
				return err
			}
			logger.Success("Variables written to %s", path)
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the selected configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, azureConfig, err := opts.provisioner(false)
			if err != nil {
				return err
			}
			errs := validate.ValidateAzure(opts.code, azureConfig)
			for _, err := range errs {
				logger.Error("%v", err)
			}
			if len(errs) > 0 {
				return fmt.Errorf("%w: %d validation errors", provisioner.ErrConfig, len(errs))
			}
			logger.Success("Config '%s' is valid", opts.code)
			return nil
		},
	}

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(nameCmd)
	rootCmd.AddCommand(existsCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(varsCmd)
	rootCmd.AddCommand(validateCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// provisioner loads the selected config and wires a provisioner for it. When
// strict is set the config must pass validation first.
func (o *options) provisioner(strict bool) (*provisioner.Provisioner, *config.Azure, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	azureConfig, err := cfg.Select(o.code)
	if err != nil {
		return nil, nil, err
	}

	if strict {
		if errs := validate.ValidateAzure(o.code, azureConfig); len(errs) > 0 {
			return nil, nil, fmt.Errorf("%w: %w", provisioner.ErrConfig, errors.Join(errs...))
		}
	}

	client := azure.NewClient(nil)
	opts := provisioner.Options{
		Cloud:        client,
		Schemas:      schema.NewManager(azureConfig.Database, nil),
		Issues:       jira.NewExtractor(),
		Cloner:       &git.Cloner{},
		TemplatePath: cfg.TemplatePath(),
	}
	if azureConfig.Variables.StorageAccount != "" {
		opts.Publisher = client.NewBlobPublisher(azureConfig.Variables.StorageAccount, azureConfig.Variables.Container)
	}

	return provisioner.New(azureConfig, opts), azureConfig, nil
}
