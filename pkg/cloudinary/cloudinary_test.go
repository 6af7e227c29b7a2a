package cloudinary

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestPublicIDKeepsSlugAndAddsUUID(t *testing.T) {
	id := PublicID("Lab Results (March).pdf")
	require.True(t, strings.HasPrefix(id, "lab-results--march-"), id)

	suffix := id[len(id)-36:]
	_, err := uuid.Parse(suffix)
	require.NoError(t, err)

	require.NotEqual(t, id, PublicID("Lab Results (March).pdf"))
}

func TestPublicIDWithoutUsableName(t *testing.T) {
	id := PublicID("???.png")
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"}, zerolog.Nop())
	require.Error(t, err)

	storage, err := New(Config{CloudName: "demo", APIKey: "key", APISecret: "secret", Folder: "/medlink/chat/"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "medlink/chat", storage.folder)
}

func TestAssetKeyRoundTrip(t *testing.T) {
	resourceType, publicID, err := parseAssetKey(assetKey("raw", "medlink/chat/lab-results-1"))
	require.NoError(t, err)
	require.Equal(t, "raw", resourceType)
	require.Equal(t, "medlink/chat/lab-results-1", publicID)

	resourceType, _, err = parseAssetKey(assetKey("", "scan"))
	require.NoError(t, err)
	require.Equal(t, "image", resourceType)

	for _, bad := range []string{"", "image:", ":scan", "scan"} {
		_, _, err := parseAssetKey(bad)
		require.Error(t, err, bad)
	}
}
