package audio

import "github.com/bogem/id3v2"

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify updates the tag with the book's value.
	TagModify

	// TagDoNotModify leaves the existing tag value unchanged.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags: true,
//	    Title:      TagModify,
//	    Artist:     TagModify,
//	    Cover:      true,
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are modified.
	ModifyTags bool

	// Title controls the TIT2 frame.
	Title TagEditAction

	// Artist controls the TPE1 frame.
	Artist TagEditAction

	// Cover embeds the cover image as the front cover picture.
	Cover bool
}

// DefaultTagConfig writes title, artist and cover.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags: true,
		Title:      TagModify,
		Artist:     TagModify,
		Cover:      true,
	}
}

// BookTags are the values written into an audiobook's tag.
type BookTags struct {
	Title string

	// Artist is the book's primary author.
	Artist string

	// Cover is the image data, CoverMimeType its Content-Type. A nil Cover
	// leaves the existing picture alone.
	Cover         []byte
	CoverMimeType string
}

// Tagger writes ID3v2.3 tags to audiobook MP3 files.
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	err := tagger.SaveTags(path, BookTags{Title: "Dune", Artist: "Frank Herbert", Cover: jpeg, CoverMimeType: "image/jpeg"})
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags updates the tag of the MP3 file at path.
func (t *Tagger) SaveTags(path string, tags BookTags) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF16)

	if t.config.ModifyTags {
		t.updateStringTags(tag, tags)
	}

	if t.config.Cover && tags.Cover != nil {
		t.updateArtwork(tag, tags.Cover, tags.CoverMimeType)
	}

	return tag.Save()
}

func (t *Tagger) updateStringTags(tag *id3v2.Tag, tags BookTags) {
	switch t.config.Title {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(tags.Title)
	}

	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
	case TagModify:
		if tags.Artist != "" {
			tag.SetArtist(tags.Artist)
		}
	}
}

// updateArtwork replaces any attached picture with the front cover.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte, mimeType string) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF16,
		MimeType:    mimeType,
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}
