package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rustactions/internal/apiclient"
	"rustactions/internal/items"
)

func newItemsCommand(ctx *commandContext) *cobra.Command {
	itemsCmd := &cobra.Command{
		Use:   "items",
		Short: "Inspect and edit the item database",
	}
	itemsCmd.AddCommand(newItemsListCommand(ctx))
	itemsCmd.AddCommand(newItemsShowCommand(ctx))
	itemsCmd.AddCommand(newItemsImportCommand(ctx))
	itemsCmd.AddCommand(newItemsDeleteCommand(ctx))
	itemsCmd.AddCommand(newItemsCategoriesCommand(ctx))
	return itemsCmd
}

func newItemsListCommand(ctx *commandContext) *cobra.Command {
	var category, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items, optionally filtered",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			list, err := client.Items(cmd.Context(), category, query)
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, list)
			}
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No items")
				return nil
			}
			fmt.Fprint(out, renderItemTable(list))
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only items in this category")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Substring match on id or name")
	return cmd
}

func renderItemTable(list []apiclient.Item) string {
	rows := make([][]string, 0, len(list))
	for _, item := range list {
		ingredients := make([]string, 0, len(item.Ingredients))
		for _, ing := range item.Ingredients {
			ingredients = append(ingredients, fmt.Sprintf("%d %s", ing.Quantity, ing.ItemID))
		}
		rows = append(rows, []string{
			item.ItemID,
			item.Name,
			item.Category,
			strconv.Itoa(item.StackSize),
			strings.Join(ingredients, ", "),
		})
	}
	return renderTable([]string{"ID", "Name", "Category", "Stack", "Ingredients"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft})
}

func newItemsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item_id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			item, err := client.Item(cmd.Context(), args[0])
			if err != nil {
				return daemonError(err)
			}
			return writeJSON(cmd, item)
		},
	}
}

func newItemsImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json|file.yaml>",
		Short: "Upsert items from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := items.LoadFile(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			created, updated := 0, 0
			for _, rec := range recs {
				isNew, err := client.UpsertItem(cmd.Context(), rec)
				if err != nil {
					return fmt.Errorf("import %s: %w", rec.ItemID, daemonError(err))
				}
				if isNew {
					created++
				} else {
					updated++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items (%d created, %d updated)\n", len(recs), created, updated)
			fmt.Fprintln(cmd.OutOrStdout(), "Run `rustactions binds generate` to bind new craftable items.")
			return nil
		},
	}
}

func newItemsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item_id>",
		Short: "Delete an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			deleted, err := client.DeleteItem(cmd.Context(), args[0])
			if err != nil {
				return daemonError(err)
			}
			if !deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not present\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newItemsCategoriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List item categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			cats, err := client.Categories(cmd.Context())
			if err != nil {
				return daemonError(err)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, cats)
			}
			for _, c := range cats {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newRecipesCommand(ctx *commandContext) *cobra.Command {
	recipesCmd := &cobra.Command{
		Use:   "recipes",
		Short: "Recipe maintenance",
	}
	var mapping []string
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge the configured crafting data file into the item database",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			res, err := client.MergeRecipes(cmd.Context(), mapping)
			if err != nil {
				return daemonError(err)
			}
			return printResult(cmd, ctx, res)
		},
	}
	mergeCmd.Flags().StringArrayVar(&mapping, "map", nil, "Extra source=item_id name mapping (repeatable)")
	recipesCmd.AddCommand(mergeCmd)
	return recipesCmd
}
