package capability

import (
	"errors"
	"testing"

	"github.com/caffeineduck/wasmplay/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRealm(t *testing.T, patch string) *host.Realm {
	t.Helper()
	realm, err := host.NewRealm()
	require.NoError(t, err)
	realm.AddCanvas("main_canvas", 800, 600)
	if patch != "" {
		_, err := realm.Run(patch)
		require.NoError(t, err)
	}
	return realm
}

func TestResolveRequired(t *testing.T) {
	table, err := Resolve(newRealm(t, ""), Required)
	require.NoError(t, err)

	names := table.Names()
	require.Len(t, names, len(Required))
	for _, req := range Required {
		b, ok := table.Lookup(req.Name)
		require.True(t, ok, req.Name)
		assert.NotNil(t, b.Fn, req.Name)
		assert.Equal(t, req.Global, b.Receiver != nil, req.Name)
	}
}

func TestResolveWalksToBaseInterface(t *testing.T) {
	req := Requirement{Name: "element.id", Interface: host.ProtoCanvasElement, Member: "id", Kind: Getter}

	realm := newRealm(t, "")
	table, err := Resolve(realm, []Requirement{req})
	require.NoError(t, err)

	b, ok := table.Lookup("element.id")
	require.True(t, ok)
	id, err := b.Fn(realm.ElementByID("main_canvas"))
	require.NoError(t, err)
	assert.Equal(t, "main_canvas", id.String())
}

func TestResolveMissingMember(t *testing.T) {
	realm := newRealm(t, `delete CanvasRenderingContext2D.prototype.fillText`)

	_, err := Resolve(realm, Required)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCapabilityMissing))

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, CanvasFillText, re.Capability)
	assert.Equal(t, "fillText", re.Member)
	assert.Equal(t, "not found on prototype chain", re.Reason)
	assert.Contains(t, err.Error(), "CanvasRenderingContext2D.fillText")
}

func TestResolveWrongKind(t *testing.T) {
	realm := newRealm(t, `Object.defineProperty(KeyboardEvent.prototype, "key", { value: "x" })`)

	_, err := Resolve(realm, Required)

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, KeyboardKey, re.Capability)
	assert.Equal(t, "property has no get function", re.Reason)
}

func TestResolveMissingGlobal(t *testing.T) {
	realm := newRealm(t, `delete globalThis.console`)

	_, err := Resolve(realm, Required)

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ConsoleLog, re.Capability)
	assert.Equal(t, "global object not defined", re.Reason)
}

func TestResolveReportsEveryFailure(t *testing.T) {
	realm := newRealm(t, `
		delete CanvasRenderingContext2D.prototype.fillRect;
		delete CanvasRenderingContext2D.prototype.clearRect;
	`)

	_, err := Resolve(realm, Required)
	require.Error(t, err)
	assert.Contains(t, err.Error(), CanvasFillRect)
	assert.Contains(t, err.Error(), CanvasClearRect)
}

func TestResolveUnknownInterface(t *testing.T) {
	_, err := Resolve(newRealm(t, ""), []Requirement{{Name: "x", Interface: "WebGLRenderingContext", Member: "drawArrays"}})

	var re *ResolveError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "interface not defined", re.Reason)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "method", Method.String())
	assert.Equal(t, "getter", Getter.String())
	assert.Equal(t, "setter", Setter.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}
