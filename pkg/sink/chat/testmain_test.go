package chat

import (
	"io"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestMain(m *testing.M) {
	// The retry tests log a warning per attempt; keep the output quiet.
	log.Logger = zerolog.New(io.Discard)
	os.Exit(m.Run())
}
