// Package audio writes ID3 tags to downloaded audiobooks.
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(path, audio.BookTags{
//		Title:         book.Title,
//		Artist:        book.PrimaryAuthor(),
//		Cover:         cover,
//		CoverMimeType: "image/jpeg",
//	})
//
// Only the title, artist and front cover frames are touched.
package audio
