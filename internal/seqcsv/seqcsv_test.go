// Copyright 2026 The go-daq Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package seqcsv

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func tmpTable(t *testing.T, data string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "seq.csv")
	err := os.WriteFile(fname, []byte(data), 0644)
	if err != nil {
		t.Fatalf("could not create sequence table: %+v", err)
	}
	return fname
}

func TestLoad(t *testing.T) {
	fname := tmpTable(t, `# addr;code;time
2;18;0.000024
0;16;0.000008
1;17;0.000016
`)

	entries, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load sequence table: %+v", err)
	}

	want := []Entry{
		{Addr: 0, Code: 16, Time: 0.000008},
		{Addr: 1, Code: 17, Time: 0.000016},
		{Addr: 2, Code: 18, Time: 0.000024},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("invalid entries:\ngot= %v\nwant=%v", entries, want)
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
		want string
	}{
		{
			name: "bad-code",
			data: "0;128;0\n",
			want: "event code 128 not in [0, 127]",
		},
		{
			name: "bad-addr",
			data: "2048;16;0\n",
			want: "address 2048 not in [0, 2047]",
		},
		{
			name: "negative-time",
			data: "0;16;-1\n",
			want: "negative timestamp",
		},
		{
			name: "duplicate-addr",
			data: "0;16;0\n0;17;0.1\n",
			want: "duplicate address 0",
		},
		{
			name: "empty",
			data: "# addr;code;time\n",
			want: "empty sequence table",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := tmpTable(t, tc.data)
			_, err := Load(fname)
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("invalid error:\ngot= %v\nwant substring %q", err, tc.want)
			}
		})
	}
}
