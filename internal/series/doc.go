// Package series decodes the converter's structured output filenames and
// numbers repeated acquisitions within one conversion unit.
//
// The converter names every volume "<subject>--<description>--<sequence>--<series>"
// followed by its extension. Parse turns such a name into a Series, Discover
// lists the volumes of a working directory in a stable order, and AssignRuns
// computes the run markers for descriptions acquired more than once.
package series
