package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"specimencore/internal/capture"
	"specimencore/pkg/domain"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func specimenCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "specimen", Short: "Document specimens of the current collection"}
	cmd.AddCommand(
		specimenAddCommand(),
		specimenListCommand(),
		specimenSelectCommand(),
		specimenSetCommand(),
		specimenPhotoCommand(),
		specimenPageCommand(),
		specimenVoiceCommand(),
		specimenOCRCommand(),
	)
	return cmd
}

func specimenAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Append a specimen and make it active",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				c, err := a.current()
				if err != nil {
					return err
				}
				sp, err := a.registry.AddSpecimen(ctx, c.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added specimen %d %s\n", len(c.Specimens)+1, sp.ID)
				return nil
			})
		},
	}
}

func specimenListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List specimens of the current collection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app) error {
				c, err := a.current()
				if err != nil {
					return err
				}
				active, _ := a.registry.ActiveSpecimen()
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "#\tID\tLABEL\tSTRUCTURE\tMINERAL\tPHOTOS\tPAGES\tVOICE\tSCORE")
				for i, sp := range c.Specimens {
					marker := ""
					if sp.ID == active.ID {
						marker = "*"
					}
					fmt.Fprintf(w, "%d%s\t%s\t%s\t%s\t%s\t%d\t%d\t%t\t%.1f\n", i+1, marker, shortID(sp.ID), sp.Label,
						sp.StructureType, sp.MineralType, len(sp.Photos), len(sp.FieldBookPages), sp.HasVoiceNote(), sp.QualityScore)
				}
				return w.Flush()
			})
		},
	}
}

func specimenSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select <position>",
		Short: "Make the specimen at a 1-based position active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("position: %w", err)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				ok, err := a.registry.SelectSpecimen(ctx, n-1)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no specimen at position %d", n)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "active specimen %d\n", n)
				return nil
			})
		},
	}
}

func specimenSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Edit fields of the active specimen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			str := func(name string) (string, bool) {
				v, _ := flags.GetString(name)
				return v, flags.Changed(name)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sp, err := a.active()
				if err != nil {
					return err
				}
				updated, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
					if v, ok := str("label"); ok {
						s.Label = v
					}
					if v, ok := str("structure"); ok {
						s.StructureType = domain.ParseStructureType(v)
					}
					if v, ok := str("mineral"); ok {
						s.MineralType = domain.ParseMineralType(v)
					}
					if v, ok := str("age"); ok {
						s.Age = v
					}
					if v, ok := str("country"); ok {
						s.Country = v
					}
					if v, ok := str("state"); ok {
						s.State = v
					}
					if v, ok := str("city"); ok {
						s.City = v
					}
					if v, ok := str("notes"); ok {
						s.Notes = v
					}
					lat, latSet := str("lat")
					lon, lonSet := str("lon")
					if latSet || lonSet {
						if !s.SetCoordinates(lat, lon) {
							return fmt.Errorf("invalid coordinates %q, %q", lat, lon)
						}
					}
					if done, _ := flags.GetBool("complete"); done {
						s.IsComplete = true
					}
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %s quality %.1f\n", shortID(updated.ID), updated.QualityScore)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.String("label", "", "specimen label")
	f.String("structure", "", "structure type")
	f.String("mineral", "", "mineral type")
	f.String("age", "", "age descriptor")
	f.String("country", "", "country")
	f.String("state", "", "state")
	f.String("city", "", "city")
	f.String("lat", "", "latitude in decimal degrees")
	f.String("lon", "", "longitude in decimal degrees")
	f.String("notes", "", "notes")
	f.Bool("complete", false, "mark the specimen complete")
	return cmd
}

func specimenPhotoCommand() *cobra.Command {
	var remove int
	cmd := &cobra.Command{
		Use:   "photo [image]",
		Short: "Add a photograph to the active specimen, or remove one with --remove",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove == 0 && len(args) == 0 {
				return errors.New("image path or --remove required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sp, err := a.active()
				if err != nil {
					return err
				}
				if remove > 0 {
					_, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
						s.RemovePhotoAt(remove - 1)
						return nil
					})
					return err
				}
				photo, err := capture.FileCamera{Path: args[0]}.Capture(ctx)
				if err != nil {
					return err
				}
				var kept bool
				updated, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
					kept = s.AddPhoto(photo.JPEG)
					return nil
				})
				if err != nil {
					return err
				}
				if !kept {
					fmt.Fprintf(cmd.OutOrStdout(), "photo limit of %d reached; photo not added\n", domain.MaxSpecimenPhotos)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "photo %d/%d (%s)\n", len(updated.Photos), domain.MaxSpecimenPhotos, humanize.Bytes(uint64(len(photo.JPEG))))
				printImageQuality(cmd, photo.Quality)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&remove, "remove", 0, "1-based position of a photograph to remove")
	return cmd
}

func specimenPageCommand() *cobra.Command {
	var remove int
	cmd := &cobra.Command{
		Use:   "page [image]",
		Short: "Add a field book page to the active specimen, or remove one with --remove",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if remove == 0 && len(args) == 0 {
				return errors.New("image path or --remove required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sp, err := a.active()
				if err != nil {
					return err
				}
				var data []byte
				if remove == 0 {
					photo, err := capture.FileCamera{Path: args[0]}.Capture(ctx)
					if err != nil {
						return err
					}
					data = photo.JPEG
					printImageQuality(cmd, photo.Quality)
				}
				updated, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
					if remove > 0 {
						s.RemoveFieldBookPageAt(remove - 1)
						return nil
					}
					s.AddFieldBookPage(data)
					return nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "field book pages: %d\n", len(updated.FieldBookPages))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&remove, "remove", 0, "1-based position of a page to remove")
	return cmd
}

func specimenVoiceCommand() *cobra.Command {
	var transcript string
	var clearNote bool
	cmd := &cobra.Command{
		Use:   "voice [audio]",
		Short: "Attach a voice note, replacing any existing one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !clearNote && len(args) == 0 {
				return errors.New("audio path or --clear required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sp, err := a.active()
				if err != nil {
					return err
				}
				if clearNote {
					_, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
						s.ClearVoiceNote()
						return nil
					})
					return err
				}
				rec, err := capture.FileRecorder{Path: args[0]}.Record(ctx)
				if err != nil {
					return err
				}
				updates, err := capture.StaticTranscriber{Text: transcript}.Transcribe(ctx, bytes.NewReader(rec.Audio))
				if err != nil {
					return err
				}
				text, err := capture.Collect(ctx, updates)
				if err != nil {
					return err
				}
				if _, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
					s.SetVoiceNote(rec.Audio, text)
					return nil
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "voice note %s: %q\n", humanize.Bytes(uint64(len(rec.Audio))), text)
				if q := rec.Quality; q.Amplitude > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "audio amplitude %.2f clarity %.2f acceptable %t\n", q.Amplitude, q.Clarity, q.Acceptable)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&transcript, "transcript", "", "transcript of the recording")
	cmd.Flags().BoolVar(&clearNote, "clear", false, "remove the voice note")
	return cmd
}

func specimenOCRCommand() *cobra.Command {
	var text string
	var confidence float64
	cmd := &cobra.Command{
		Use:   "ocr",
		Short: "Record recognised field book text for the active specimen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				sp, err := a.active()
				if err != nil {
					return err
				}
				var page []byte
				if n := len(sp.FieldBookPages); n > 0 {
					page = sp.FieldBookPages[n-1]
				}
				res, err := capture.StaticRecognizer{Text: text, Confidence: confidence}.Recognize(ctx, page)
				if err != nil {
					return err
				}
				if _, err := a.registry.UpdateSpecimen(ctx, sp.ID, func(s *domain.Specimen) error {
					s.SetOCR(res.Text, res.Confidence)
					return nil
				}); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ocr confidence %.2f\n", res.Confidence)
				if res.NeedsVerification {
					fmt.Fprintln(out, "low confidence: verify the recognised text")
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "recognised text")
	cmd.Flags().Float64Var(&confidence, "confidence", 1, "recognition confidence in [0,1]")
	return cmd
}

func printImageQuality(cmd *cobra.Command, q capture.ImageQuality) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sharpness %.2f brightness %.2f\n", q.Sharpness, q.Brightness)
	for _, r := range q.Recommendations {
		fmt.Fprintln(out, "  -", r)
	}
}
