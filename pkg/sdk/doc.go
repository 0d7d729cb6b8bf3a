// Package solrfacet provides faceted navigation over Apache Solr for Go programs.
//
// A Manager owns one set of Solr query parameters. Widgets registered on it
// each control the filter queries (fq) for one field and read that field's
// facet counts from the last response.
//
//	client, _ := solrfacet.New(solrfacet.WithSolr("http://localhost:8983/solr", "products"))
//	m := client.NewManager()
//	colors, _ := m.Widget(solrfacet.WidgetConfig{
//	    ID: "colors", Field: "color", Kind: solrfacet.KindField,
//	    Multivalue: true, Union: true, Tag: "color", Ex: "color",
//	})
//	_, _ = colors.Append("red")
//	_, _ = colors.Append("blue") // fq={!tag=color}color:(red blue)
//	res, _ := m.Search(ctx)
//	counts, _ := colors.Counts()
//
// Selection modes follow from the widget flags:
//   - single (default): one fq entry for the field, replaced on Set
//   - multivalue: one fq entry per value, intersected by Solr
//   - multivalue + union: one fq entry holding an OR group of values
package solrfacet
