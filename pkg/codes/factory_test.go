package codes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_Code(t *testing.T) {
	f := NewFactory(nil)
	f.Catalog().Register(map[string]string{"user.not_found": "User not found."})

	data := map[string]interface{}{"id": 7}
	c, err := f.Code("user.not_found", data)
	require.NoError(t, err)
	assert.Equal(t, "user.not_found", c.Code)
	assert.Equal(t, "User not found.", c.Message)
	assert.Equal(t, 7, c.Data["id"])

	data["id"] = 8
	assert.Equal(t, 7, c.Data["id"], "data must be copied")

	_, err = f.Code("missing", nil)
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestFactory_RaiseEmitsEvents(t *testing.T) {
	f := NewFactory(nil)
	f.Catalog().Register(map[string]string{"db.down": "Database unavailable."})

	var events []Event
	unsubscribe := f.Subscribe(func(ev Event) { events = append(events, ev) })

	hard := f.ErrorCode("db.down", nil)
	soft := f.FailCode("db.down", nil)
	unknown := f.ErrorCode("nope", nil)

	assert.Equal(t, KindErrorCode, hard.Kind)
	assert.Equal(t, KindFailCode, soft.Kind)
	assert.Equal(t, "Database unavailable.", hard.Message)
	assert.ErrorIs(t, unknown, ErrUnknownCode)

	require.Len(t, events, 2, "unknown codes are not published")
	assert.Equal(t, KindErrorCode, events[0].Kind)
	assert.Equal(t, "db.down", events[0].Code.Code)
	assert.Equal(t, KindFailCode, events[1].Kind)

	unsubscribe()
	f.ErrorCode("db.down", nil)
	assert.Len(t, events, 2)
}

func TestFactory_WrapKeepsCause(t *testing.T) {
	sentinel := errors.New("connection refused")
	f := NewFactory(nil)
	f.Catalog().Register(map[string]string{"db.down": "Database unavailable."})

	err := f.Wrap(KindErrorCode, "db.down", sentinel)
	assert.ErrorIs(t, err, sentinel)
	assert.ErrorIs(t, err, &Error{Kind: KindErrorCode, Code: "db.down"})
	assert.NotErrorIs(t, err, &Error{Kind: KindFailCode, Code: "db.down"})

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, "db.down", code)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFactory_Mask(t *testing.T) {
	errNotFound := errors.New("record not found")
	f := NewFactory(nil)
	f.Catalog().Register(map[string]string{"record.missing": "Record missing."})
	f.RegisterError("record.missing", errNotFound)

	masked, ok := f.Mask(errors.Join(errors.New("query"), errNotFound), KindFailCode)
	require.True(t, ok)
	assert.Equal(t, "record.missing", masked.Code)
	assert.Equal(t, KindFailCode, masked.Kind)

	_, ok = f.Mask(errors.New("other"), KindFailCode)
	assert.False(t, ok)

	_, ok = f.Mask(nil, KindFailCode)
	assert.False(t, ok)
}

func TestCatalog_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codes.toml")
	content := `
"app.top" = "Top level."

[http]
not_found = "Page not found."

[http.auth]
expired = "Session expired."
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := NewCatalog()
	builtin := c.Len()
	n, err := c.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, builtin+3, c.Len())

	msg, ok := c.Message("http.auth.expired")
	assert.True(t, ok)
	assert.Equal(t, "Session expired.", msg)

	msg, _ = c.Message("app.top")
	assert.Equal(t, "Top level.", msg)
}

func TestCatalog_LoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewCatalog().LoadFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(`count = 3`), 0644))
	_, err = NewCatalog().LoadFile(bad)
	assert.ErrorContains(t, err, "must be a string")
}

func TestKind(t *testing.T) {
	assert.True(t, KindErrorCode.Valid())
	assert.True(t, KindFailCode.Valid())
	assert.False(t, Kind("warning").Valid())
	assert.Equal(t, "failCode", KindFailCode.String())
}
