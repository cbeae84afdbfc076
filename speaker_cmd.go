package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacixn/inkami/reader"
	"github.com/jacixn/inkami/reader/source"
)

var (
	speakerName  string
	speakerVoice string

	speakerCmd = &cobra.Command{
		Use:     "speaker SPEAKER",
		Short:   "Rename a speaker or change its voice",
		Long:    paragraph(fmt.Sprintf("\n%s a speaker of the chapter API. Open readers pick the change up on their next refresh.", keyword("Update"))),
		Example: paragraph("inkami speaker spk_3 --name \"Old Man\"\ninkami speaker spk_3 --voice voice_old_man"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			upd := reader.SpeakerUpdate{DisplayName: speakerName, VoiceID: speakerVoice}
			if upd == (reader.SpeakerUpdate{}) {
				return errors.New("nothing to update: use --name or --voice")
			}
			cfg, err := loadReaderConfig()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.API.Timeout)
			defer cancel()
			if err := source.NewHTTPSource(cfg.API).UpdateSpeaker(ctx, args[0], upd); err != nil {
				return fmt.Errorf("unable to update speaker: %w", err)
			}
			fmt.Println("Updated speaker", keyword(args[0]))
			return nil
		},
	}
)

func init() {
	speakerCmd.Flags().StringVar(&speakerName, "name", "", "display name")
	speakerCmd.Flags().StringVar(&speakerVoice, "voice", "", "voice id")
}
