package interpretation

import (
	"fmt"
	"strings"

	"github.com/Aleph-Alpha/trackindex/v1/track"
)

const systemPrompt = "You are a music critic writing concise, factual descriptions of recordings for a search index. " +
	"Describe mood, themes and sound. Do not invent facts about the artist."

func lyricsPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Interpret the song %q by %s", in.Title, in.Artist)
	if in.Album != "" {
		fmt.Fprintf(&b, " from the album %q", in.Album)
	}
	b.WriteString(". Summarize its mood, themes and narrative in one paragraph.\n")
	if features := in.AudioFeatures.Describe(); len(features) > 0 {
		fmt.Fprintf(&b, "Audio features: %s.\n", strings.Join(features, ", "))
	}
	b.WriteString("Lyrics:\n")
	b.WriteString(*in.Lyrics)
	return b.String()
}

func audioFeaturesPrompt(in Input) string {
	return fmt.Sprintf(
		"Write a short description (at most %d characters) of the instrumental or lyric-less track %q by %s "+
			"based only on these audio features: %s.",
		track.MaxShortDescriptionLength, in.Title, in.Artist, strings.Join(in.AudioFeatures.Describe(), ", "))
}

func metadataPrompt(in Input) string {
	album := ""
	if in.Album != "" {
		album = fmt.Sprintf(" from the album %q", in.Album)
	}
	return fmt.Sprintf(
		"Write a short description (at most %d characters) of the track %q by %s%s. "+
			"Only the title, artist and album are known.",
		track.MaxShortDescriptionLength, in.Title, in.Artist, album)
}
