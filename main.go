package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"drivefetch/clients"
	"drivefetch/logging"
	"drivefetch/processor"
	"drivefetch/progress"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	cfgFile string
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivefetch <id>",
		Short: "Download Google-Drive shares recursively through the command line",
		Long: `drivefetch downloads a publicly shared Google Drive folder, mirroring its
folder structure on the local disk.

Existing files are kept unless --force is given, and MD5 checksums can be
verified after every download.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          process,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drivefetch.yaml)")

	cmd.Flags().BoolP("force", "f", false, "Overwrite files when necessary.")
	cmd.Flags().BoolP("non-recursively", "R", false, "Don't download folders recursively.")
	cmd.Flags().BoolP("check", "c", false, "Check integrity of files (MD5).")
	cmd.Flags().BoolP("verbose", "v", false, "Print all warning messages.")
	cmd.Flags().Bool("no-download", false, "Don't download anything, just announce changes.")
	cmd.Flags().StringP("output-folder", "o", "", "How to name the root folder (by default the folder-id).")
	cmd.Flags().Bool("file-id", false, "If you have a file-id instead of a folder-id.")

	return cmd
}

func init() {
	cobra.OnInitialize(initConfig)

	// Bind flags to viper
	viper.BindPFlag("force", rootCmd.Flags().Lookup("force"))
	viper.BindPFlag("non_recursive", rootCmd.Flags().Lookup("non-recursively"))
	viper.BindPFlag("check", rootCmd.Flags().Lookup("check"))
	viper.BindPFlag("verbose", rootCmd.Flags().Lookup("verbose"))
	viper.BindPFlag("no_download", rootCmd.Flags().Lookup("no-download"))
	viper.BindPFlag("output_folder", rootCmd.Flags().Lookup("output-folder"))
	viper.BindPFlag("file_id", rootCmd.Flags().Lookup("file-id"))

	// Transport settings are only read from the config file or environment
	viper.SetDefault("http.retry_max", 3)
	viper.SetDefault("http.timeout", "0s")
	viper.SetDefault("http.user_agent", clients.DefaultUserAgent)

	viper.SetEnvPrefix("DRIVEFETCH")
	viper.BindEnv("http.retry_max", "DRIVEFETCH_HTTP_RETRY_MAX")
	viper.BindEnv("http.timeout", "DRIVEFETCH_HTTP_TIMEOUT")
	viper.BindEnv("http.user_agent", "DRIVEFETCH_HTTP_USER_AGENT")
}

func initConfig() {
	if cfgFile != "" {
		// Use specified config file
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".drivefetch")
	}

	viper.AutomaticEnv() // read environment variables, e.g. DRIVEFETCH_FORCE

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runConfig builds the processor configuration from viper
func runConfig(id string) processor.Config {
	output := viper.GetString("output_folder")
	if output == "" {
		output = id
	}
	return processor.Config{
		FolderID:     id,
		OutputFolder: output,
		Options: processor.Options{
			Force:          viper.GetBool("force"),
			Recursive:      !viper.GetBool("non_recursive"),
			VerifyChecksum: viper.GetBool("check"),
			Verbose:        viper.GetBool("verbose"),
			DryRun:         viper.GetBool("no_download"),
		},
	}
}

func driveConfig(log *logging.Logger) clients.DriveConfig {
	cfg := clients.DefaultDriveConfig()
	cfg.RetryMax = viper.GetInt("http.retry_max")
	cfg.Timeout = viper.GetDuration("http.timeout")
	cfg.UserAgent = viper.GetString("http.user_agent")
	cfg.Logger = log
	return cfg
}

func process(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	id := args[0]
	log := logging.NewDefault(viper.GetBool("verbose"))

	if err := clients.ValidateID(id); err != nil {
		log.Errorf("Invalid ID format. Please ensure you're using the correct format: [[a-zA-Z0-9]-_]{33}.")
		return err
	}

	if viper.GetBool("file_id") {
		log.Warnf("Just do: \"wget --content-disposition '%s'\"", clients.FileDownloadURL(id))
		return nil
	}

	proc := processor.NewProcessor(&processor.Dependencies{
		DriveClient: clients.NewDriveClient(driveConfig(log)),
		Fs:          afero.NewOsFs(),
		Logger:      log,
		Progress:    func() progress.Reporter { return progress.NewCLIProgress() },
	})

	if _, err := proc.Main(ctx, runConfig(id)); err != nil {
		var re *processor.ResolutionError
		if errors.As(err, &re) {
			log.Errorf("Failed to read the shared folder: %v", err)
		}
		return err
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
