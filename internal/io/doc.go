// Package ioutils saves book files to disk and prepares cover art.
//
// # File Store
//
// FileStore lays files out as <root>/<authors>/<title>.<ext> and never
// downloads a file that already exists:
//
//	store := ioutils.NewFileStore("/books", client)
//	path, existed, err := store.Materialize(ctx, token,
//		ioutils.BookFolder(book.Authors),
//		book.File,
//		ioutils.BookFileName(book.Title, ext))
//
// # Filename Sanitization
//
//	safe := ioutils.SanitizeFileName("Dune: Messiah/2") // Returns "Dune_ Messiah_2"
//
// # Image Processing
//
//	svc := ioutils.NewImageService()
//	resized, _ := svc.ResizeImage(ctx, imageData, 500, 500)
package ioutils
