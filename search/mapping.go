package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Indexed fields. These are the text-bearing fields records expose for
// approximate matching.
const (
	fieldTitle       = "title"
	fieldYear        = "year"
	fieldAuthor      = "author"
	fieldPublication = "publication"
)

// buildIndexMapping creates the Bleve mapping for record documents. All
// four fields are full-text searchable; nothing is stored, since results
// are resolved back to dataset records by document ID.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{fieldTitle, fieldYear, fieldAuthor, fieldPublication} {
		fieldMapping := bleve.NewTextFieldMapping()
		fieldMapping.Analyzer = en.AnalyzerName
		fieldMapping.Store = false
		docMapping.AddFieldMappingsAt(field, fieldMapping)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
