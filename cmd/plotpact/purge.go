package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func purgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete sessions past their retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			n, err := a.stories.Purge(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Purged %d expired sessions.\n", n)
			return nil
		},
	}
}
