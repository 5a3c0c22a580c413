// Package jsonld projects catalog rows into linked-data documents using
// schema.org, SKOS, DCAT and a small KCS vocabulary.
//
// Every function here is pure: the same input always encodes to the same
// bytes. Nodes are typed structs so encoding/json emits keys in declaration
// order.
package jsonld

import (
	"strconv"

	"github.com/chis/kbcatalog/internal/storage"
	"github.com/google/uuid"
)

// ContentType is the media type of every document produced here.
const ContentType = "application/ld+json"

// Vocabulary namespaces.
const (
	SchemaNS  = "https://schema.org/"
	SKOSNS    = "http://www.w3.org/2004/02/skos/core#"
	DCATNS    = "http://www.w3.org/ns/dcat#"
	DCTermsNS = "http://purl.org/dc/terms/"
	KCSNS     = "https://kbcatalog.dev/ns/kcs#"
)

// CatalogID identifies the catalog, which is also the category concept scheme.
const CatalogID = "urn:kbcatalog:catalog"

// scriptNamespace seeds the name-based UUIDs that identify scripts.
var scriptNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(CatalogID+":script"))

// Context is the @context shared by every document.
type Context struct {
	Schema  string `json:"schema"`
	SKOS    string `json:"skos"`
	DCAT    string `json:"dcat"`
	DCTerms string `json:"dcterms"`
	KCS     string `json:"kcs"`
}

// DefaultContext returns the prefix mapping used in every document.
func DefaultContext() *Context {
	return &Context{
		Schema:  SchemaNS,
		SKOS:    SKOSNS,
		DCAT:    DCATNS,
		DCTerms: DCTermsNS,
		KCS:     KCSNS,
	}
}

// Ref is a node reference.
type Ref struct {
	ID string `json:"@id"`
}

// Person is a schema.org person.
type Person struct {
	Type string `json:"@type"`
	Name string `json:"schema:name"`
}

// PropertyValue describes one script parameter.
type PropertyValue struct {
	Type          string  `json:"@type"`
	Name          string  `json:"schema:name"`
	Description   string  `json:"schema:description,omitempty"`
	ValueRequired bool    `json:"schema:valueRequired"`
	DefaultValue  *string `json:"schema:defaultValue,omitempty"`
}

// ScriptNode is a script rendered as source code plus its knowledge article.
type ScriptNode struct {
	Context             *Context        `json:"@context,omitempty"`
	ID                  string          `json:"@id"`
	Type                []string        `json:"@type"`
	Name                string          `json:"schema:name"`
	Description         string          `json:"schema:description"`
	Text                string          `json:"schema:text,omitempty"`
	ProgrammingLanguage string          `json:"schema:programmingLanguage"`
	CodeRepository      string          `json:"schema:codeRepository"`
	Keywords            []string        `json:"schema:keywords"`
	About               Ref             `json:"schema:about"`
	AdditionalProperty  []PropertyValue `json:"schema:additionalProperty"`
	Author              *Person         `json:"schema:author,omitempty"`
	DateModified        string          `json:"schema:dateModified,omitempty"`
	State               string          `json:"kcs:state"`
	Confidence          int             `json:"kcs:confidence"`
	Environment         string          `json:"kcs:environment,omitempty"`
	Resolution          string          `json:"kcs:resolution,omitempty"`
	Cause               string          `json:"kcs:cause,omitempty"`
	ViewCount           int64           `json:"kcs:viewCount"`
	SupportsWhatIf      bool            `json:"kcs:supportsWhatIf"`
	SupportsExport      bool            `json:"kcs:supportsExport"`
}

// ConceptNode is a category rendered as a SKOS concept.
type ConceptNode struct {
	Context      *Context `json:"@context,omitempty"`
	ID           string   `json:"@id"`
	Type         string   `json:"@type"`
	PrefLabel    string   `json:"skos:prefLabel"`
	Definition   string   `json:"skos:definition,omitempty"`
	Notation     string   `json:"skos:notation"`
	InScheme     Ref      `json:"skos:inScheme"`
	TopConceptOf Ref      `json:"skos:topConceptOf"`
	ScriptCount  int      `json:"kcs:scriptCount"`
}

// CatalogNode is the catalog, typed both as a DCAT catalog and as the
// concept scheme that owns the categories.
type CatalogNode struct {
	Context       *Context      `json:"@context"`
	ID            string        `json:"@id"`
	Type          []string      `json:"@type"`
	Title         string        `json:"dcterms:title"`
	Description   string        `json:"dcterms:description"`
	HasTopConcept []ConceptNode `json:"skos:hasTopConcept"`
	NumberOfItems int           `json:"schema:numberOfItems"`
	Published     int           `json:"kcs:publishedCount"`
}

// Graph wraps several nodes under one context.
type Graph[T any] struct {
	Context *Context `json:"@context"`
	Graph   []T      `json:"@graph"`
}

// ScriptID returns the stable identifier of the script called name.
func ScriptID(name string) string {
	return uuid.NewSHA1(scriptNamespace, []byte(name)).URN()
}

// CategoryID returns the concept identifier of a category slug.
func CategoryID(slug string) string {
	return "urn:kbcatalog:category:" + slug
}

// ScriptToJSONLD renders a script with its parameters and tags.
func ScriptToJSONLD(script storage.Script, parameters []storage.Parameter, tags []storage.Tag) ScriptNode {
	node := scriptNode(script, parameters, tags)
	node.Context = DefaultContext()
	return node
}

func scriptNode(script storage.Script, parameters []storage.Parameter, tags []storage.Tag) ScriptNode {
	props := make([]PropertyValue, len(parameters))
	for i, p := range parameters {
		props[i] = PropertyValue{
			Type:          "schema:PropertyValue",
			Name:          p.Name,
			Description:   p.Description,
			ValueRequired: p.IsRequired,
			DefaultValue:  p.DefaultValue,
		}
	}

	node := ScriptNode{
		ID:                  ScriptID(script.Name),
		Type:                []string{"schema:SoftwareSourceCode", "kcs:Article"},
		Name:                script.Name,
		Description:         script.Synopsis,
		Text:                script.Description,
		ProgrammingLanguage: "PowerShell",
		CodeRepository:      script.FilePath,
		Keywords:            storage.TagNames(tags),
		About:               Ref{ID: CategoryID(script.CategorySlug)},
		AdditionalProperty:  props,
		State:               script.KCSState,
		Confidence:          script.Confidence,
		Environment:         script.Environment,
		Resolution:          script.Resolution,
		Cause:               script.Cause,
		ViewCount:           script.ViewCount,
		SupportsWhatIf:      script.SupportsWhatIf,
		SupportsExport:      script.SupportsExport,
	}
	if script.Author != "" {
		node.Author = &Person{Type: "schema:Person", Name: script.Author}
	}
	if script.LastReviewed != nil {
		node.DateModified = script.LastReviewed.UTC().Format("2006-01-02")
	}
	return node
}

// CategoryToJSONLD renders a category as a top concept of the catalog scheme.
func CategoryToJSONLD(category storage.Category) ConceptNode {
	node := conceptNode(category)
	node.Context = DefaultContext()
	return node
}

func conceptNode(category storage.Category) ConceptNode {
	return ConceptNode{
		ID:           CategoryID(category.Slug),
		Type:         "skos:Concept",
		PrefLabel:    category.Name,
		Definition:   category.Description,
		Notation:     strconv.Itoa(category.SortOrder),
		InScheme:     Ref{ID: CatalogID},
		TopConceptOf: Ref{ID: CatalogID},
		ScriptCount:  category.ScriptCount,
	}
}

// CategoriesToJSONLD renders every category in one graph.
func CategoriesToJSONLD(categories []storage.Category) Graph[ConceptNode] {
	nodes := make([]ConceptNode, len(categories))
	for i, c := range categories {
		nodes[i] = conceptNode(c)
	}
	return Graph[ConceptNode]{Context: DefaultContext(), Graph: nodes}
}

// CatalogToJSONLD renders the catalog with its categories and totals.
func CatalogToJSONLD(categories []storage.Category, stats storage.Stats) CatalogNode {
	concepts := make([]ConceptNode, len(categories))
	for i, c := range categories {
		concepts[i] = conceptNode(c)
	}
	return CatalogNode{
		Context:       DefaultContext(),
		ID:            CatalogID,
		Type:          []string{"dcat:Catalog", "skos:ConceptScheme"},
		Title:         "PowerShell Script Knowledge Base",
		Description:   "Administrative PowerShell scripts with their knowledge-centered service articles.",
		HasTopConcept: concepts,
		NumberOfItems: stats.ScriptCount,
		Published:     stats.PublishedCount,
	}
}
