package app

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerrors "go.hackfix.me/stow/app/errors"
	"go.hackfix.me/stow/kv"
	"go.hackfix.me/stow/store"
	"go.hackfix.me/stow/store/memory"
)

var keyRx = regexp.MustCompile(`New encryption key: (\S+)`)

func TestAppStore(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 10*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	run := func(args ...string) error {
		return app.Run(append([]string{"--backend=prefs", "--data-dir=/data"}, args...)...)
	}

	t.Run("ok/set_get", func(t *testing.T) {
		err = run("set", "key", "testvalue")
		h(assert.NoError(t, err))

		err = run("set", "key2", "testvalue2")
		h(assert.NoError(t, err))

		err = run("get", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvalue\n", app.stdout.String()))

		err = run("get", "key2")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvalue2\n", app.stdout.String()))
	})

	t.Run("ok/set_stdin", func(t *testing.T) {
		app.stdin.WriteString("from stdin")
		err = run("set", "key3", "-")
		h(assert.NoError(t, err))

		err = run("get", "key3")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "from stdin\n", app.stdout.String()))
	})

	t.Run("ok/set_get_namespace", func(t *testing.T) {
		err = run("set", "--namespace=dev", "myapp/key", "testvaluens")
		h(assert.NoError(t, err))

		err = run("get", "--namespace=dev", "myapp/key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvaluens\n", app.stdout.String()))

		err = run("get", "myapp/key")
		h(assert.ErrorIs(t, err, kv.ErrGetObject))
	})

	t.Run("ok/ls", func(t *testing.T) {
		err = run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nkey2\nkey3\n", app.stdout.String()))

		err = run("ls", "--namespace=dev")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "myapp/key\n", app.stdout.String()))

		err = run("ls", "app")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "", app.stdout.String()))

		err = run("ls", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nkey2\nkey3\n", app.stdout.String()))
	})

	t.Run("err/duplicate", func(t *testing.T) {
		err = run("set", "key", "other")
		h(assert.ErrorIs(t, err, kv.ErrDuplicate))

		err = run("get", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "testvalue\n", app.stdout.String()))
	})

	t.Run("ok/overwrite", func(t *testing.T) {
		err = run("set", "--overwrite", "key", "other")
		h(assert.NoError(t, err))

		err = run("get", "key")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "other\n", app.stdout.String()))
	})

	t.Run("ok/rm", func(t *testing.T) {
		err = run("rm", "key2")
		h(assert.NoError(t, err))

		err = run("rm", "key2")
		h(assert.ErrorIs(t, err, kv.ErrNotFound))

		err = run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "key\nkey3\n", app.stdout.String()))
	})

	t.Run("ok/wipe", func(t *testing.T) {
		err = run("wipe")
		var rerr aerrors.Runtime
		h(assert.ErrorAs(t, err, &rerr))
		h(assert.Equal(t, "Pass --yes to delete all keys.", rerr.Hint()))

		err = run("wipe", "--yes")
		h(assert.NoError(t, err))

		err = run("ls")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "", app.stdout.String()))

		err = run("ls", "--namespace=dev")
		h(assert.NoError(t, err))
		h(assert.Equal(t, "myapp/key\n", app.stdout.String()))
	})
}

func TestAppSecureBackends(t *testing.T) {
	t.Parallel()

	for _, backend := range []string{"badger", "sqlite"} {
		backend := backend
		t.Run(backend, func(t *testing.T) {
			t.Parallel()

			tctx, cancel, h := newTestContext(t, 20*time.Second)
			defer cancel()

			app, err := newTestApp(tctx, WithFS(osfs.New()))
			h(assert.NoError(t, err))

			dataDir := t.TempDir()
			run := func(args ...string) error {
				return app.Run(append([]string{"--backend=" + backend, "--data-dir=" + dataDir}, args...)...)
			}

			err = run("set", "key", "value")
			var rerr aerrors.Runtime
			if backend == "badger" {
				h(assert.ErrorAs(t, err, &rerr))
				h(assert.Equal(t, missingKeyHint, rerr.Hint()))
			} else {
				// The SQLite store isn't initialized yet.
				h(assert.Error(t, err))
			}

			err = run("init")
			h(assert.NoError(t, err))
			match := keyRx.FindStringSubmatch(app.stdout.String())
			h(assert.Len(t, match, 2))
			key := match[1]

			h(assert.NoError(t, app.env.Set("STOW_ENCRYPTION_KEY", key)))

			err = run("set", "--accessibility=always", "key", "secret value")
			h(assert.NoError(t, err))

			err = run("get", "key")
			h(assert.NoError(t, err))
			h(assert.Equal(t, "secret value\n", app.stdout.String()))

			err = run("ls")
			h(assert.NoError(t, err))
			h(assert.Equal(t, "key\n", app.stdout.String()))

			err = run("set", "--accessibility=custom", "custom", "custom value")
			h(assert.NoError(t, err))

			err = run("get", "custom")
			h(assert.NoError(t, err))
			h(assert.Equal(t, "custom value\n", app.stdout.String()))

			err = run("--custom-access=never", "get", "custom")
			h(assert.ErrorIs(t, err, kv.ErrGetObject))
			h(assert.ErrorIs(t, err, store.ErrAccessDenied))

			err = run("--custom-access=never", "get", "key")
			h(assert.NoError(t, err))
			h(assert.Equal(t, "secret value\n", app.stdout.String()))

			// The flag takes precedence over the environment.
			err = run("--encryption-key=invalid", "get", "key")
			h(assert.ErrorContains(t, err, "invalid encryption key"))
		})
	}
}

func TestAppInjectedBackendMetrics(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	b := memory.New()
	app, err := newTestApp(tctx, WithBackend(b))
	h(assert.NoError(t, err))

	metricsFile := filepath.Join(t.TempDir(), "stow.prom")

	err = app.Run("--metrics-file="+metricsFile, "--namespace=ns", "set", "--accessibility=custom", "key", "value")
	h(assert.NoError(t, err))

	access, err := b.Accessibility("ns", "key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, store.AccessibleCustom, access))

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `stow_backend_ops_total{op="put",result="ok"} 1`)
	assert.Contains(t, string(data), `stow_backend_ops_total{op="exists",result="ok"} 1`)
}

func TestAppConfigFile(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(cfgPath, []byte("backend: prefs\ndata_dir: /cfg\nnamespace: fromconfig\n"), 0o600)
	require.NoError(t, err)

	app, err := newTestApp(tctx, WithConfigPaths(cfgPath))
	h(assert.NoError(t, err))

	err = app.Run("set", "key", "value")
	h(assert.NoError(t, err))

	ok, err := app.ctx.FS.Exists("/cfg/prefs.yaml")
	h(assert.NoError(t, err))
	h(assert.True(t, ok))

	err = app.Run("--backend=prefs", "--data-dir=/cfg", "--namespace=fromconfig", "get", "key")
	h(assert.NoError(t, err))
	h(assert.Equal(t, "value\n", app.stdout.String()))
}

func TestAppVersion(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	err = app.Run("version")
	h(assert.NoError(t, err))
	h(assert.Regexp(t, `^stow v\d+\.\d+\.\d+`, app.stdout.String()))
}

func TestAppFatalIfErrorf(t *testing.T) {
	t.Parallel()

	tctx, cancel, h := newTestContext(t, 5*time.Second)
	defer cancel()

	app, err := newTestApp(tctx)
	h(assert.NoError(t, err))

	app.FatalIfErrorf(nil)
	h(assert.Equal(t, -1, app.exitCode))

	app.FatalIfErrorf(aerrors.NewRuntimeError("boom", nil, "try again"))
	h(assert.Equal(t, 1, app.exitCode))
	h(assert.Contains(t, app.stderr.String(), "boom"))
	h(assert.Contains(t, app.stderr.String(), "Hint: try again"))
}
