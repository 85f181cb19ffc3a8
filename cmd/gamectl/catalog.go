package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yourusername/promptgame-api/internal/domain/entity"
	pgRepo "github.com/yourusername/promptgame-api/internal/repository/postgres"
	"github.com/yourusername/promptgame-api/internal/service"
	"github.com/yourusername/promptgame-api/pkg/database"
)

func newCatalogService(load configLoader) (*service.CatalogService, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), cfg.Database.LogLevel)
	if err != nil {
		return nil, err
	}
	storage, err := service.NewStorageService(cfg.Storage)
	if err != nil {
		return nil, err
	}
	return service.NewCatalogService(pgRepo.NewImageRepo(db), storage), nil
}

func newCatalogCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the image catalog",
	}

	var file, uploadDir string
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import images from a .csv or .xlsx file (columns: level, file_path, original_prompt, ...)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newCatalogService(load)
			if err != nil {
				return err
			}
			n, err := svc.ImportFile(cmd.Context(), file, uploadDir)
			if err != nil {
				return err
			}
			cmd.Printf("Imported %d images.\n", n)
			return nil
		},
	}
	importCmd.Flags().StringVarP(&file, "file", "f", "", "catalog file (.csv or .xlsx)")
	importCmd.Flags().StringVar(&uploadDir, "upload-dir", "", "directory with image files to upload to storage")
	_ = importCmd.MarkFlagRequired("file")

	var level string
	var all bool
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newCatalogService(load)
			if err != nil {
				return err
			}
			var lvl *entity.Level
			if level != "" {
				l := entity.Level(level)
				lvl = &l
			}
			images, total, err := svc.List(lvl, !all, limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLEVEL\tACTIVE\tFILE")
			for _, img := range images {
				fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", img.ID, img.Level, img.Active, img.FilePath)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			cmd.Printf("Shown %d of %d.\n", len(images), total)

			counts, err := svc.ActiveCounts()
			if err != nil {
				return err
			}
			for _, l := range entity.Levels() {
				cmd.Printf("active %s: %d\n", l, counts[l])
			}
			return nil
		},
	}
	listCmd.Flags().StringVarP(&level, "level", "l", "", "filter by level (easy, medium, hard)")
	listCmd.Flags().BoolVar(&all, "all", false, "include inactive images")
	listCmd.Flags().IntVar(&limit, "limit", 50, "page size")
	listCmd.Flags().IntVar(&offset, "offset", 0, "offset")

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <image-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := newCatalogService(load)
				if err != nil {
					return err
				}
				if err := svc.SetActive(args[0], active); err != nil {
					return err
				}
				cmd.Printf("Image %s active=%t.\n", args[0], active)
				return nil
			},
		}
	}

	cmd.AddCommand(
		importCmd,
		listCmd,
		setActive("deactivate", "Exclude an image from new sessions", false),
		setActive("activate", "Return an image to the pool", true),
	)
	return cmd
}
