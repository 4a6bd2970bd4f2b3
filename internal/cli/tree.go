package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lherron/syncp/internal/cli/appctx"
	"github.com/lherron/syncp/internal/domain"
	"github.com/lherron/syncp/internal/render"
	"github.com/lherron/syncp/internal/treecopy"
)

var treeCmd = &cobra.Command{
	Use:   "tree <entity-id>",
	Short: "Display an entity and its descendants",
	Long: `Display an entity and everything below it in a tree structure. Useful to
check the result of a copy.

Examples:
  syncp tree syn40              # Show the tree under syn40
  syncp tree syn40 -L 1         # Only direct children
  syncp tree syn40 -o json      # Flat list with depth and parent
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.WithRepo(), runTree),
}

var treeDepth int

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().IntVarP(&treeDepth, "level", "L", 0, "Maximum depth to display (0 = unlimited)")
}

type treeNode struct {
	domain.EntityHeader
	ParentID string      `json:"parentId,omitempty"`
	Depth    int         `json:"depth"`
	Children []*treeNode `json:"-"`
}

func runTree(app *appctx.App, cmd *cobra.Command, args []string) error {
	entityID, _, err := parseEntityArg(args[0])
	if err != nil {
		return err
	}
	renderer, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	ctx := ensureContext(cmd.Context())
	root, err := app.Repo.GetEntity(ctx, entityID, nil)
	if err != nil {
		return err
	}
	node := &treeNode{EntityHeader: domain.HeaderOf(root), ParentID: root.Base().ParentID}
	if err := buildTree(ctx, app.Repo, node, treeDepth); err != nil {
		return err
	}

	format, _ := render.ParseFormat(app.Config.Output)
	if format == render.FormatTable {
		printTree(cmd.OutOrStdout(), node, "", true, true)
		return nil
	}

	t := render.Table{Headers: []string{"ID", "PARENT", "DEPTH", "TYPE", "NAME"}}
	walkTree(node, func(n *treeNode) {
		t.Rows = append(t.Rows, []string{n.ID, optionalString(n.ParentID), fmt.Sprint(n.Depth), string(n.Type), n.Name})
		t.Items = append(t.Items, n)
	})
	return renderer.Render(t)
}

func buildTree(ctx context.Context, repo treecopy.Repository, node *treeNode, maxDepth int) error {
	if maxDepth > 0 && node.Depth >= maxDepth {
		return nil
	}
	if node.Type != domain.EntityTypeProject && node.Type != domain.EntityTypeFolder {
		return nil
	}
	children, err := repo.ListChildren(ctx, node.ID, nil)
	if err != nil {
		return fmt.Errorf("failed to list children of %s: %w", node.ID, err)
	}
	for _, h := range children {
		child := &treeNode{EntityHeader: h, ParentID: node.ID, Depth: node.Depth + 1}
		if err := buildTree(ctx, repo, child, maxDepth); err != nil {
			return err
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

func walkTree(node *treeNode, fn func(*treeNode)) {
	fn(node)
	for _, c := range node.Children {
		walkTree(c, fn)
	}
}

func printTree(w io.Writer, node *treeNode, prefix string, isLast, isRoot bool) {
	label := fmt.Sprintf("%s [%s %s]", node.Name, node.Type, node.ID)
	if node.VersionNumber > 0 {
		label = fmt.Sprintf("%s [%s %s.%d]", node.Name, node.Type, node.ID, node.VersionNumber)
	}

	childPrefix := prefix
	if isRoot {
		fmt.Fprintln(w, label)
	} else {
		connector := "├── "
		if isLast {
			connector = "└── "
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, label)
	}

	for i, c := range node.Children {
		printTree(w, c, childPrefix, i == len(node.Children)-1, false)
	}
}
