package openai

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/cenkalti/backoff/v5"
	"github.com/sashabaranov/go-openai"
)

// Transcribe sends the audio file to the transcription model and returns the
// plain text it heard.
func (a *Adapter) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "SpeechToText", map[string]any{
		"span.kind":                    "LLM",
		"audio_path_for_transcription": audioPath,
	})
	defer span.End()

	if audioPath == "" {
		span.SetAttributes(map[string]any{"transcription_result": ""})
		return "", nil
	}
	if _, err := os.Stat(audioPath); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	resp, err := retry(ctx, a, a.retry.ShortAttempts, a.retry.ShortMaxInterval, func() (openai.AudioResponse, error) {
		return a.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    a.transcription,
			FilePath: audioPath,
			Language: language,
			Format:   openai.AudioResponseFormatText,
		})
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	span.SetAttributes(map[string]any{"transcription_result": resp.Text})
	return resp.Text, nil
}

// Speak renders text with the speech model and writes the audio to outPath.
func (a *Adapter) Speak(ctx context.Context, text, outPath string) (string, error) {
	ctx, span := a.tracer.Start(ctx, "TextToSpeech", map[string]any{
		"span.kind":                 "LLM",
		"transcription":             text,
		"path_of_speech_generation": outPath,
		"text_to_speech_model":      string(a.speechModel),
		"text_to_speech_voice":      string(a.speechVoice),
	})
	defer span.End()

	_, err := retry(ctx, a, a.retry.ShortAttempts, a.retry.ShortMaxInterval, func() (int64, error) {
		resp, err := a.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model: a.speechModel,
			Voice: a.speechVoice,
			Input: text,
		})
		if err != nil {
			return 0, err
		}
		defer resp.Close()
		return writeAudio(outPath, resp)
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("speech generation failed: %w", err)
	}
	return outPath, nil
}

// writeAudio fails permanently when the file cannot be created; a broken
// download is retried.
func writeAudio(path string, r io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, backoff.Permanent(err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
