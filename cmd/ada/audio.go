package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ada-engine/internal/di"
)

var (
	transcribeLanguage string
	speakOutput        string
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Print the transcript of an audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := di.NewAgentContainer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		text, err := c.LLM.Transcribe(cmd.Context(), args[0], transcribeLanguage)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var speakCmd = &cobra.Command{
	Use:   "speak <text>...",
	Short: "Render text as speech into an audio file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := di.NewAgentContainer(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		path, err := c.LLM.Speak(cmd.Context(), strings.Join(args, " "), speakOutput)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeLanguage, "language", "l", "en", "ISO-639-1 language of the audio")
	speakCmd.Flags().StringVarP(&speakOutput, "output", "o", "speech.mp3", "File the audio is written to")
}
