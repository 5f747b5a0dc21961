package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tendant/venue-admin/pkg/media"
	"github.com/tendant/venue-admin/pkg/portal"
	"github.com/tendant/venue-admin/pkg/portal/api"
	"github.com/tendant/venue-admin/pkg/portal/config"
	"github.com/tendant/venue-admin/pkg/portal/scan"
	repopg "github.com/tendant/venue-admin/pkg/portal/repo/postgres"
)

// NewTokenCommand issues a session token signed with JWT_SECRET
func NewTokenCommand() *cobra.Command {
	var userID, tenantID, role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a session token for the portal API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := api.IssueToken(api.NewJWTAuth(cfg.JWTSecret), portal.Session{
				UserID:   userID,
				TenantID: tenantID,
				Role:     role,
			})
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&role, "role", "", "role claim")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

// NewEntitiesCommand lists the built-in entity schemas
func NewEntitiesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List entity schemas and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schemas := portal.BuiltinSchemas()
			if useJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), schemas)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tFIELD\tKIND\tREQUIRED\tATTACHMENT")
			for _, s := range schemas {
				for _, f := range s.Fields {
					attachment := ""
					if f.Attachment != nil {
						attachment = fmt.Sprintf("%s/%s (%dMB)", f.Attachment.Bucket, f.Attachment.Folder, f.Attachment.MaxSizeInMB)
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.Entity, f.Name, f.Kind, f.Required, attachment)
				}
			}
			return w.Flush()
		},
	}
}

// NewSchemaSQLCommand prints the DDL for the entity tables
func NewSchemaSQLCommand() *cobra.Command {
	var dbSchema string

	cmd := &cobra.Command{
		Use:   "schema-sql",
		Short: "Print the Postgres DDL for all entity tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := repopg.New(nil, repopg.WithSchemaName(dbSchema))
			out := cmd.OutOrStdout()
			for _, s := range portal.BuiltinSchemas() {
				for _, stmt := range repo.CreateTableSQL(s) {
					fmt.Fprintf(out, "%s;\n\n", stmt)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbSchema, "schema", "public", "Postgres schema name")
	return cmd
}

// NewMigrateCommand creates or extends the entity tables in DATABASE_URL
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend the entity tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(config.WithAutoMigrate(true))
			if err != nil {
				return err
			}
			if cfg.DatabaseType != "postgres" {
				return fmt.Errorf("migrate requires a postgres DATABASE_URL")
			}

			_, pool, err := cfg.BuildRepository(cmd.Context())
			if err != nil {
				return err
			}
			pool.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d entity tables in schema %s\n", len(portal.BuiltinSchemas()), cfg.DBSchema)
			return nil
		},
	}
}

// NewListCommand prints one page of records for a tenant
func NewListCommand() *cobra.Command {
	var (
		tenantID string
		q        portal.Query
		filters  []string
	)

	cmd := &cobra.Command{
		Use:   "list <entity>",
		Short: "List records of an entity for a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range filters {
				name, value, ok := strings.Cut(f, "=")
				if !ok {
					return fmt.Errorf("filter must be field=value, got: %s", f)
				}
				if q.Filters == nil {
					q.Filters = make(map[string]string)
				}
				q.Filters[name] = value
			}

			components, ctx, err := buildForTenant(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			defer components.Close()

			page, err := components.Service.List(ctx, args[0], q)
			if err != nil {
				return err
			}
			if useJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), page)
			}

			schema, err := components.Service.Schema(args[0])
			if err != nil {
				return err
			}
			return writeTable(cmd.OutOrStdout(), schema, page)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVarP(&q.Search, "query", "q", "", "search text")
	cmd.Flags().IntVar(&q.Limit, "limit", portal.DefaultLimit, "page size")
	cmd.Flags().IntVar(&q.Offset, "offset", 0, "page offset")
	cmd.Flags().StringVar(&q.OrderBy, "order-by", "", "field to order by (default: created_at)")
	cmd.Flags().BoolVar(&q.Desc, "desc", false, "descending order")
	cmd.Flags().StringArrayVar(&filters, "filter", nil, "field=value filter (repeatable)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

// NewUploadCommand stores a local file under an attachment field's constraints
func NewUploadCommand() *cobra.Command {
	var tenantID string

	cmd := &cobra.Command{
		Use:   "upload <entity> <field> <file>",
		Short: "Upload a file to an attachment field's bucket",
		Long: `Upload a file using the size and type limits of an attachment field and
print its public URL. The record is not changed; set the URL with the API.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			entity, field, filePath := args[0], args[1], args[2]

			f, err := os.Open(filePath)
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat file: %w", err)
			}

			components, ctx, err := buildForTenant(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			defer components.Close()

			result, err := components.Service.UploadAttachment(ctx, entity, field, media.File{
				Name:        filepath.Base(filePath),
				ContentType: mime.TypeByExtension(filepath.Ext(filePath)),
				Size:        info.Size(),
				Reader:      f,
			})
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			if useJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Bucket: %s\nPath: %s\nURL: %s\n", result.Bucket, result.Path, result.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID (required)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

// NewAttachmentsCommand audits the attachment references of a tenant
func NewAttachmentsCommand() *cobra.Command {
	var (
		tenantID  string
		entities  []string
		batchSize int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "attachments",
		Short: "Report managed and external attachment URLs for a tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			components, ctx, err := buildForTenant(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			defer components.Close()

			audit := scan.NewAttachmentAudit(components.URLs)
			scanner := scan.New(components.Repository, portal.BuiltinSchemas()...)
			result, err := scanner.Scan(ctx, scan.Options{
				TenantID:  tenantID,
				Entities:  entities,
				Processor: audit,
				BatchSize: batchSize,
			})
			if err != nil {
				return err
			}

			summary := audit.Summary()
			if useJSON(cmd) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"records":     result.TotalProcessed,
					"summary":     summary,
					"attachments": audit.Attachments(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Records scanned: %d\n", result.TotalProcessed)
			fmt.Fprintf(out, "Managed: %d  External: %d  Empty: %d\n", summary.Managed, summary.External, summary.Empty)
			for bucket, n := range summary.ByBucket {
				fmt.Fprintf(out, "  %s: %d\n", bucket, n)
			}
			if verbose {
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "\nENTITY\tID\tFIELD\tMANAGED\tURL")
				for _, a := range audit.Attachments() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", a.Entity, a.RecordID, a.Field, a.Managed, a.URL)
				}
				return w.Flush()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringSliceVar(&entities, "entity", nil, "entities to scan (default: all)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 100, "records per query")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "list every attachment")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

// buildForTenant wires the portal from the environment and returns a context
// carrying an operator session for tenantID.
func buildForTenant(ctx context.Context, tenantID string) (*config.Components, context.Context, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(config.WithEventLogging(false), config.WithListCache(0, 0))
	if err != nil {
		return nil, nil, err
	}
	components, err := cfg.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	return components, portal.WithSession(ctx, portal.Session{UserID: "admin-cli", TenantID: tenantID, Role: "operator"}), nil
}

func useJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(out io.Writer, schema *portal.Schema, page portal.Page) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	cols := []string{portal.FieldID}
	for _, f := range schema.Fields {
		if f.Kind == portal.KindText || f.Kind == portal.KindAttachment {
			continue
		}
		cols = append(cols, f.Name)
	}

	fmt.Fprintln(w, strings.ToUpper(strings.Join(cols, "\t")))
	for _, rec := range page.Items {
		vals := make([]string, len(cols))
		for i, c := range cols {
			vals[i] = fmt.Sprint(rec[c])
		}
		fmt.Fprintln(w, strings.Join(vals, "\t"))
	}
	fmt.Fprintf(w, "\n%d of %d (offset %d)\n", len(page.Items), page.Total, page.Offset)
	return w.Flush()
}
