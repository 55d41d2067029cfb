// Package site declares the content model of the project landing page and
// validates it before it is handed to a renderer.
//
// The core components are:
//   - [Document]: site-wide fields, one [Hero] and an ordered list of [Section] values
//   - [Section]: a closed tagged union discriminated by [Kind]
//   - [Validate]: exhaustive check producing a [ValidDocument] or every [ValidationError]
//   - [Render]: walks a [ValidDocument] through a [Renderer], failing on unknown kinds
//
// A Document is built once by the host (see [ZipMetaMap]) and treated as
// read-only afterwards. Nothing in this package reorders, deduplicates or pads
// any sequence.
package site
