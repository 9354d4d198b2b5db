package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"model-lifecycle/core/evaluator"
	"model-lifecycle/core/logger"
	"model-lifecycle/providers/aws"
	"model-lifecycle/storage"

	"github.com/spf13/cobra"
)

type cliOptions struct {
	modelsDir string
	verbose   bool
	out       io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &cliOptions{out: out}
	defaultDir := os.Getenv("MODELS_DIR")
	if defaultDir == "" {
		defaultDir = "./models"
	}

	root := &cobra.Command{
		Use:           "modelctl",
		Short:         "Inspect and maintain the versioned model store",
		SilenceUsage:  true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&opts.modelsDir, "models-dir", defaultDir, "model store directory")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log store operations")

	root.AddCommand(
		newListCmd(opts),
		newShowCmd(opts),
		newPruneCmd(opts),
		newBackupCmd(opts),
		newActivateCmd(opts),
		newRollbackCmd(opts),
	)
	return root
}

func (o *cliOptions) openStore() (*storage.ModelStore, error) {
	log := logger.Nop()
	if o.verbose {
		var err error
		if log, err = logger.New("dev"); err != nil {
			return nil, err
		}
	}
	return storage.NewModelStore(o.modelsDir, log)
}

func newListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List models and their versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			list := store.List()
			if len(list) == 0 {
				fmt.Fprintln(opts.out, "No models stored")
				return nil
			}
			for _, mv := range list {
				active, _ := store.ActiveVersion(mv.ModelID)
				versions := make([]string, len(mv.Versions))
				for i, v := range mv.Versions {
					versions[i] = strconv.Itoa(v)
				}
				fmt.Fprintf(opts.out, "%s\tversions=[%s]\tactive=%d\n", mv.ModelID, strings.Join(versions, ","), active)
			}
			return nil
		},
	}
}

func newShowCmd(opts *cliOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show MODEL [VERSION]",
		Short: "Show one model version, the latest by default",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			version := 0
			if len(args) == 2 {
				if version, err = strconv.Atoi(args[1]); err != nil {
					return fmt.Errorf("invalid version %q", args[1])
				}
			}
			artifact, err := store.Load(args[0], version)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(artifact)
			}
			fmt.Fprintf(opts.out, "Model:    %s v%d (%s)\n", artifact.ModelID, artifact.Version, artifact.Type)
			fmt.Fprintf(opts.out, "Trained:  %s on %d samples\n", artifact.TrainingInfo.Timestamp.Format("2006-01-02 15:04:05"), artifact.TrainingInfo.Samples)
			fmt.Fprintln(opts.out, evaluator.GenerateReport(&artifact.Metrics))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the artifact as JSON")
	return cmd
}

func newPruneCmd(opts *cliOptions) *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "prune MODEL",
		Short: "Delete all but the newest versions of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			deleted, err := store.Prune(args[0], keep)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Pruned %d version(s) of %s\n", deleted, args[0])
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", storage.DefaultKeep, "number of versions to keep")
	return cmd
}

func newBackupCmd(opts *cliOptions) *cobra.Command {
	var bucket, prefix, region string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the store into a timestamped sibling directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if bucket != "" {
				mirror, err := aws.NewClient(ctx, region, bucket, prefix)
				if err != nil {
					return err
				}
				store.SetBackupMirror(mirror)
			}
			path, err := store.Backup(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Backup written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&bucket, "s3-bucket", os.Getenv("BACKUP_S3_BUCKET"), "also upload the backup to this S3 bucket")
	cmd.Flags().StringVar(&prefix, "s3-prefix", "model-backups", "key prefix inside the bucket")
	cmd.Flags().StringVar(&region, "region", os.Getenv("AWS_REGION"), "AWS region")
	return cmd
}

func newActivateCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "activate MODEL VERSION",
		Short: "Pin the version served for a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[1])
			}
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			if err := store.SetActive(args[0], version, "modelctl"); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s now serves v%d\n", args[0], version)
			return nil
		},
	}
}

func newRollbackCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback MODEL",
		Short: "Pin the version below the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			version, err := store.Rollback(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "%s rolled back to v%d\n", args[0], version)
			return nil
		},
	}
}
