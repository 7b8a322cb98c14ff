package batch_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/gt"

	"miuinotify/internal/batch"
)

const sample = `
- codename: begonia_global
  version: V12.5.1.0.RGGMIXM
  android: "11.0"
  branch: Stable
  method: Recovery
  size: 2684354560
  md5: 8e6d1f1c3b5f6a6e3c2f6e1a9d4b7c0f
  changelog: |-
    System
    - Optimized performance
  link: https://bigota.d.miui.com/V12.5.1.0.RGGMIXM/miui_BEGONIAGlobal_V12.5.1.0.RGGMIXM.zip
- codename: alioth
  version: V12.5.2.0.RKHMIXM
  android: "11.0"
  branch: Stable Beta
  method: Fastboot
  size: 3221225472
  link: https://bigota.d.miui.com/alioth.tgz
`

func TestRead(t *testing.T) {
	updates, err := batch.Read(strings.NewReader(sample))
	gt.NoError(t, err)
	gt.Equal(t, len(updates), 2)

	gt.Equal(t, updates[0].Codename, "begonia_global")
	gt.Equal(t, updates[0].Android, "11.0")
	gt.Equal(t, updates[0].Size, int64(2684354560))
	gt.Equal(t, updates[0].Changelog, "System\n- Optimized performance")
	gt.Equal(t, updates[1].Branch, "Stable Beta")
	gt.Equal(t, updates[1].MD5, "")
}

func TestRead_JSON(t *testing.T) {
	input := `[{"codename":"alioth","version":"V1","method":"Fastboot","link":"https://x/y.tgz","size":1}]`
	updates, err := batch.Read(strings.NewReader(input))
	gt.NoError(t, err)
	gt.Equal(t, len(updates), 1)
	gt.Equal(t, updates[0].Method, "Fastboot")
}

func TestRead_Empty(t *testing.T) {
	updates, err := batch.Read(strings.NewReader(""))
	gt.NoError(t, err)
	gt.Equal(t, len(updates), 0)
}

func TestRead_Invalid(t *testing.T) {
	testCases := map[string]string{
		"unknown field":  "- codename: a\n  version: v\n  method: Recovery\n  link: l\n  colour: red\n",
		"missing link":   "- codename: a\n  version: v\n  method: Recovery\n",
		"bad method":     "- codename: a\n  version: v\n  method: OTA\n  link: l\n",
		"not a sequence": "codename: a\n",
	}
	for name, input := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := batch.Read(strings.NewReader(input))
			gt.Error(t, err)
		})
	}

	_, err := batch.Read(strings.NewReader("- codename: a\n  version: v\n  method: Recovery\n"))
	gt.True(t, errors.Is(err, batch.ErrInvalidUpdate))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yml")
	gt.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	updates, err := batch.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, len(updates), 2)

	_, err = batch.ReadFile(filepath.Join(t.TempDir(), "missing.yml"))
	gt.Error(t, err)
}
