package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/inovacc/recstore/internal/engine"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"coll"},
	Short:   "Manage collections",
	Long: `Commands for creating, inspecting and dropping collections.

Available Commands:
  create    Create a collection
  list      List collections
  show      Show a collection schema and record count
  drop      Delete a collection and its records`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create [NAME]",
	Short: "Create a collection",
	Long: `Create a collection, either from flags or from a YAML schema file.

Index specs have the form name=path[:unique][:multi]. Use a comma separated
path list for a composite index key (name=a,b).

Examples:
  # Records keyed by their "id" field
  recstore collection create users --key-path id --index by_email=email:unique

  # Generated keys written back into "id"
  recstore collection create events --key-path id --auto-increment

  # Out-of-line generated keys
  recstore collection create log --auto-increment

  # From a schema file
  recstore collection create --file users.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := schemaFromFlags(cmd, args)
		if err != nil {
			return err
		}

		return withDB(cmd, func(db *engine.DB) error {
			if err := db.CreateCollection(schema); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created collection %q\n", schema.Name)

			return nil
		})
	},
}

var collectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List collections",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *engine.DB) error {
			names, err := db.Collections()
			if err != nil {
				return err
			}

			for _, name := range names {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		})
	},
}

var collectionShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Show a collection schema and record count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *engine.DB) error {
			info, err := describeCollection(db, args[0])
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)

			if err := enc.Encode(info); err != nil {
				return err
			}

			return enc.Close()
		})
	},
}

var collectionDropCmd = &cobra.Command{
	Use:     "drop NAME",
	Aliases: []string{"rm"},
	Short:   "Delete a collection and its records",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd, func(db *engine.DB) error {
			if err := db.DeleteCollection(args[0]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dropped collection %q\n", args[0])

			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionCreateCmd, collectionListCmd, collectionShowCmd, collectionDropCmd)

	flags := collectionCreateCmd.Flags()
	flags.String("key-path", "", "field holding each record's key (dotted for nested fields)")
	flags.StringSlice("composite-key-path", nil, "fields forming a composite key")
	flags.Bool("auto-increment", false, "generate numeric keys")
	flags.StringArray("index", nil, "index spec name=path[:unique][:multi] (repeatable)")
	flags.StringP("file", "f", "", "read the schema from a YAML file")
	collectionCreateCmd.MarkFlagsMutuallyExclusive("key-path", "composite-key-path")
}

type collectionInfo struct {
	engine.CollectionSchema `yaml:",inline"`
	Records                 int `yaml:"records"`
}

func describeCollection(db *engine.DB, name string) (collectionInfo, error) {
	tx, err := db.Begin([]string{name}, engine.ModeReadOnly, engine.DurabilityRelaxed)
	if err != nil {
		return collectionInfo{}, err
	}
	defer func() { _ = tx.Abort() }()

	c, err := tx.Collection(name)
	if err != nil {
		return collectionInfo{}, err
	}

	n, err := c.Count()
	if err != nil {
		return collectionInfo{}, err
	}

	return collectionInfo{CollectionSchema: c.Schema(), Records: n}, nil
}

func schemaFromFlags(cmd *cobra.Command, args []string) (engine.CollectionSchema, error) {
	var schema engine.CollectionSchema

	flags := cmd.Flags()

	if file, _ := flags.GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return schema, fmt.Errorf("failed to read schema %s: %w", file, err)
		}

		if err := yaml.Unmarshal(data, &schema); err != nil {
			return schema, fmt.Errorf("failed to parse schema %s: %w", file, err)
		}
	}

	if len(args) == 1 {
		schema.Name = args[0]
	}

	if schema.Name == "" {
		return schema, fmt.Errorf("collection name is required")
	}

	if flags.Changed("key-path") {
		p, _ := flags.GetString("key-path")
		schema.KeyPath = engine.Path(p)
	}

	if flags.Changed("composite-key-path") {
		paths, _ := flags.GetStringSlice("composite-key-path")
		schema.KeyPath = engine.CompositePath(paths...)
	}

	if flags.Changed("auto-increment") {
		schema.AutoIncrement, _ = flags.GetBool("auto-increment")
	}

	specs, _ := flags.GetStringArray("index")
	for _, spec := range specs {
		idx, err := parseIndexSpec(spec)
		if err != nil {
			return schema, err
		}

		schema.Indexes = append(schema.Indexes, idx)
	}

	return schema, nil
}

// parseIndexSpec parses name=path[:unique][:multi]; a comma separated path
// list makes a composite key path.
func parseIndexSpec(spec string) (engine.IndexSchema, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok || name == "" || rest == "" {
		return engine.IndexSchema{}, fmt.Errorf("invalid index spec %q: want name=path[:unique][:multi]", spec)
	}

	parts := strings.Split(rest, ":")
	idx := engine.IndexSchema{Name: name}

	if paths := strings.Split(parts[0], ","); len(paths) > 1 {
		idx.KeyPath = engine.CompositePath(paths...)
	} else {
		idx.KeyPath = engine.Path(parts[0])
	}

	for _, opt := range parts[1:] {
		switch strings.ToLower(opt) {
		case "unique":
			idx.Unique = true
		case "multi", "multientry", "multi-entry":
			idx.MultiEntry = true
		default:
			return engine.IndexSchema{}, fmt.Errorf("invalid index option %q in %q", opt, spec)
		}
	}

	return idx, nil
}
