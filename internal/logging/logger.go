package logging

import (
	"io"
	"log/slog"
	"os"
)

// Setup installs the JSON stdout logger used until the database is up.
func Setup() {
	slog.SetDefault(slog.New(NewJSONHandler(os.Stdout)))
}

func NewJSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
}
