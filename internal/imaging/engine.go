// Package imaging wraps the external deconvolution engine. The engine is an
// opaque collaborator: this package only builds its parameter sets, runs it
// as a subprocess and reports whether it succeeded. Calls are synchronous and
// blocking; the pipeline never overlaps two of them.
package imaging

import "context"

// Engine is the imaging collaborator contract consumed by the pipeline.
type Engine interface {
	// Clean runs one deconvolution call, writing the image cube artifacts
	// under p.ImageName.
	Clean(ctx context.Context, p CleanParams) error

	// ExportFITS converts a native image to an interchange FITS file.
	// dropStokes removes the degenerate polarization axis.
	ExportFITS(ctx context.Context, imageName, fitsName string, dropStokes bool) error

	// ImportFITS converts a FITS file into a native image, used to hand a
	// generated mask to the engine.
	ImportFITS(ctx context.Context, fitsName, imageName string) error
}
