package descriptor

import (
	"errors"
	"testing"

	"github.com/studiopipe/sgtk/internal/sgtk/helpers"
)

func TestDictToURISortsAndEscapes(t *testing.T) {
	t.Parallel()
	d := Dict{
		KeyType:    TypeGit,
		KeyVersion: "v1.2.3",
		KeyPath:    "git@github.com:studio/tk-maya.git",
	}
	uri, err := DictToURI(d)
	if err != nil {
		t.Fatalf("DictToURI error: %v", err)
	}
	want := "sgtk:descriptor:git?path=git%40github.com%3Astudio%2Ftk-maya.git&version=v1.2.3"
	if uri != want {
		t.Fatalf("uri mismatch:\n got %s\nwant %s", uri, want)
	}
}

func TestURIRoundTripDictFirst(t *testing.T) {
	t.Parallel()
	dicts := []Dict{
		{KeyType: TypeAppStore, KeyName: "tk-multi-publish2", KeyVersion: "v2.5.0"},
		{KeyType: TypeGit, KeyPath: "https://github.com/studio/tk-config.git", KeyVersion: "v0.16.1"},
		{KeyType: TypeGitBranch, KeyPath: "/repos/tk-nuke.git", KeyBranch: "develop", KeyVersion: "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"},
		{KeyType: TypePerforceChange, KeyPath: "//depot/tools/tk-houdini", KeyChangelist: "4211"},
		{KeyType: TypePerforceLabel, KeyPath: "//depot/tools/tk-houdini", KeyLabel: "build-102"},
		{KeyType: TypeManual, KeyName: "tk-internal", KeyVersion: "v1.0.0"},
		{KeyType: TypePath, KeyPath: "/studio/dev/tk-config"},
	}
	for _, d := range dicts {
		uri, err := DictToURI(d)
		if err != nil {
			t.Fatalf("DictToURI(%v) error: %v", d, err)
		}
		back, err := URIToDict(uri)
		if err != nil {
			t.Fatalf("URIToDict(%s) error: %v", uri, err)
		}
		if len(back) != len(d) {
			t.Fatalf("round trip changed key count for %s: %v", uri, back)
		}
		for key, value := range d {
			if back[key] != value {
				t.Fatalf("round trip of %s lost %s: got %q want %q", uri, key, back[key], value)
			}
		}
	}
}

func TestURIRoundTripURIFirst(t *testing.T) {
	t.Parallel()
	uris := []string{
		"sgtk:descriptor:app_store?name=tk-core&version=v0.19.19",
		"sgtk:descriptor:git?path=%2Frepos%2Ftk-maya.git&version=v1.0.0",
		"sgtk:descriptor:dev?path=%2Fstudio%2Fdev%2Fconfig",
	}
	for _, uri := range uris {
		d, err := URIToDict(uri)
		if err != nil {
			t.Fatalf("URIToDict(%s) error: %v", uri, err)
		}
		back, err := DictToURI(d)
		if err != nil {
			t.Fatalf("DictToURI error: %v", err)
		}
		if back != uri {
			t.Fatalf("round trip mismatch:\n got %s\nwant %s", back, uri)
		}
	}
}

func TestURIToDictRejectsMalformed(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		uri  string
		want error
	}{
		{"wrong prefix", "tank:descriptor:git?path=x", helpers.ErrDescriptorURIPrefix},
		{"empty type", "sgtk:descriptor:?name=x", helpers.ErrDescriptorTypeEmpty},
		{"missing required field", "sgtk:descriptor:app_store?version=v1.0.0", helpers.ErrDescriptorFieldMissing},
		{"repeated key", "sgtk:descriptor:app_store?name=a&name=b", helpers.ErrDescriptorFieldInvalid},
		{"repeated type", "sgtk:descriptor:git?type=git&path=x", helpers.ErrDescriptorFieldInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := URIToDict(tc.uri); !errors.Is(err, tc.want) {
				t.Fatalf("URIToDict(%s) = %v, want %v", tc.uri, err, tc.want)
			}
		})
	}
}

func TestValidateDictRequiresFieldsPerType(t *testing.T) {
	t.Parallel()
	if _, err := DictToURI(Dict{KeyType: TypeGitBranch, KeyPath: "/repo.git"}); !errors.Is(err, helpers.ErrDescriptorFieldMissing) {
		t.Fatalf("git_branch without branch accepted: %v", err)
	}
	if _, err := DictToURI(Dict{KeyType: TypePath}); !errors.Is(err, helpers.ErrDescriptorFieldMissing) {
		t.Fatalf("path without any path accepted: %v", err)
	}
	if _, err := DictToURI(Dict{KeyType: TypePath, KeyLinuxPath: "/l", KeyMacPath: "/m", KeyWindowsPath: `C:\w`}); err != nil {
		t.Fatalf("path with platform triple rejected: %v", err)
	}
	// Unknown types pass through; their constructors validate.
	if _, err := DictToURI(Dict{KeyType: "bitbucket", "organization": "studio", "repository": "tk-x"}); err != nil {
		t.Fatalf("custom type rejected: %v", err)
	}
}
