package notify_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/streakbot/internal/adapters/notify"
)

type failing struct{}

func (failing) Notify(context.Context, string) error { return errors.New("down") }

func TestMulti_DeliversDespiteFailure(t *testing.T) {
	var buf bytes.Buffer
	m := notify.Multi{failing{}, notify.NewConsoleWriter(&buf)}

	err := m.Notify(context.Background(), "hello")
	assert.ErrorContains(t, err, "down")
	assert.Contains(t, buf.String(), "hello")
}
