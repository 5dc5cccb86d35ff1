package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"storefront/internal/platform/config"
	"storefront/internal/platform/logger"
	"storefront/internal/storefront"
)

var (
	renderDomain  string
	renderPath    string
	renderQuery   string
	renderSession string
	renderMeta    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one page to stdout",
	Long: `Render one storefront page and print its HTML, for debugging themes.

Without DATABASE_URL the in-memory demo store is served on demo.{PLATFORM_DOMAIN}.

Examples:
  storefront render --domain demo.fasttify.com --path /
  storefront render --domain acme.fasttify.com --path /search --query "q=shirt"`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderDomain, "domain", "", "request host of the store (required)")
	renderCmd.Flags().StringVar(&renderPath, "path", "/", "storefront path")
	renderCmd.Flags().StringVar(&renderQuery, "query", "", "raw query string, e.g. q=shirt&page=TOKEN")
	renderCmd.Flags().StringVar(&renderSession, "cart-session", "", "cart session id")
	renderCmd.Flags().BoolVar(&renderMeta, "metadata", false, "print the page metadata instead of the HTML")
	_ = renderCmd.MarkFlagRequired("domain")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Logging)
	params, err := url.ParseQuery(renderQuery)
	if err != nil {
		return fmt.Errorf("invalid --query: %w", err)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.factory.RenderPage(ctx, renderDomain, renderPath, params, storefront.WithCartSession(renderSession))
	if res != nil {
		out := cmd.OutOrStdout()
		if renderMeta {
			fmt.Fprintf(out, "title: %s\ndescription: %s\ncanonical: %s\nstatus: %d\ntemplate: %s\n",
				res.Metadata.Title, res.Metadata.Description, res.Metadata.Canonical, res.StatusCode, res.TemplateType)
		} else {
			fmt.Fprintln(out, res.HTML)
		}
	}
	var re *storefront.RenderError
	if errors.As(err, &re) {
		return fmt.Errorf("render failed with %d: %w", re.StatusCode, re)
	}
	return err
}
