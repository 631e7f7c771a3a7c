package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flexsearch/indexer/internal/model"
)

func newEnsureCmd(opts *options, connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure",
		Short: "Create the index unless it exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				created, err := admin.EnsureIndex(ctx, admin.Index())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"index": admin.Index(), "created": created})
			})
		},
	}
}

func newEnsureTypeCmd(opts *options, connect connectFunc) *cobra.Command {
	var mappingFile string

	cmd := &cobra.Command{
		Use:   "ensure-type <type>",
		Short: "Declare the mapping of a document type",
		Long: `Declare the mapping of a document type, creating the index first if needed.

The optional mapping file holds a JSON object {"properties": {...}} with the
extra fields of the type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req model.TypeMappingRequest
			if mappingFile != "" {
				raw, err := os.ReadFile(mappingFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &req); err != nil {
					return fmt.Errorf("invalid mapping file %s: %w", mappingFile, err)
				}
			}

			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				if err := admin.EnsureType(ctx, args[0], req.Properties); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"index": admin.Index(), "type": args[0]})
			})
		},
	}
	cmd.Flags().StringVarP(&mappingFile, "mapping", "m", "", "JSON file with the type properties")
	return cmd
}

func newResetCmd(opts *options, connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete and recreate the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				if err := admin.ResetIndex(ctx, admin.Index()); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"index": admin.Index(), "reset": true})
			})
		},
	}
}

func newDeleteCmd(opts *options, connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				if err := admin.DeleteIndex(ctx, admin.Index()); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"index": admin.Index(), "deleted": true})
			})
		},
	}
}

func newResetAllCmd(opts *options, connect connectFunc) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "reset-all",
		Short: "Delete every non-system index of the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("reset-all deletes every index of the cluster, pass --yes to confirm")
			}
			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				deleted, err := admin.ResetAllIndices(ctx)
				if err != nil {
					return fmt.Errorf("deleted %v before failing: %w", deleted, err)
				}
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{"deleted": deleted})
			})
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the deletion")
	return cmd
}

func newHealthCmd(opts *options, connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the cluster health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdmin(cmd, opts, connect, func(ctx context.Context, admin Admin) error {
				health, err := admin.ClusterHealth(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), health)
			})
		},
	}
}
