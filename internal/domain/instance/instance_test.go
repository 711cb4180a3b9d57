package instance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestClone verifies that Clone deep-copies content and timestamps.
func TestClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Instance)(nil).Clone())

	ts := time.Now().UTC()
	i := &Instance{
		Slug:           "skyblock",
		Name:           "Skyblock",
		PackID:         "skyblock-pack",
		PackVersion:    "v2",
		Status:         StatusReady,
		Content:        []Content{{ProjectID: "sodium", FileName: "sodium.jar"}},
		LastLaunchedAt: &ts,
	}

	c := i.Clone()
	require.Equal(t, i, c)
	require.NotSame(t, i, c)
	require.NotSame(t, &i.Content[0], &c.Content[0])
	require.NotSame(t, i.LastLaunchedAt, c.LastLaunchedAt)
}

// TestValidate verifies slug and pack identity checks.
func TestValidate(t *testing.T) {
	t.Parallel()

	i := &Instance{Slug: "sky-block-2", PackID: "p", PackVersion: "v"}
	require.NoError(t, i.Validate())

	i = &Instance{Slug: "", PackID: "p", PackVersion: "v"}
	require.Error(t, i.Validate())

	i = &Instance{Slug: "Bad Slug", PackID: "p", PackVersion: "v"}
	require.Error(t, i.Validate())

	i = &Instance{Slug: "ok", PackID: "", PackVersion: "v"}
	require.Error(t, i.Validate())
}

// TestSlugify verifies display names collapse into directory-safe slugs.
func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		want string
	}{
		{"Skyblock", "skyblock"},
		{"All The Mods 9", "all-the-mods-9"},
		{"  Fancy!!  Pack  ", "fancy-pack"},
		{"Better MC [FABRIC]", "better-mc-fabric"},
		{"---", ""},
		{"Créate: Above & Beyond", "cr-ate-above-beyond"},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Slugify(tc.name), "name %q", tc.name)
	}
}
