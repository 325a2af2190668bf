package siri

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Document is the element-tree form of a SIRI delivery. It supports the
// cheap structural queries the ingestion pipeline needs before anything is
// decoded into typed form: pagination state and operator-scoped extraction
// of journey and situation fragments.
type Document struct {
	doc *etree.Document
}

// ParseDocument reads a SIRI XML document.
func ParseDocument(data []byte) (*Document, error) {
	var doc = etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("reading SIRI document: %w", err)
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("reading SIRI document: no root element")
	}
	return &Document{doc: doc}, nil
}

// MoreData reports the /Siri/ServiceDelivery/MoreData flag. Absent means
// false.
func (d *Document) MoreData() bool {
	var el = d.doc.FindElement("//ServiceDelivery/MoreData")
	return el != nil && strings.TrimSpace(el.Text()) == "true"
}

// EstimatedVehicleJourneys returns each EstimatedVehicleJourney attributed to
// operator as a standalone XML fragment. An empty operator matches all.
func (d *Document) EstimatedVehicleJourneys(operator string) ([][]byte, error) {
	return d.fragments("EstimatedVehicleJourney", "OperatorRef", operator)
}

// PtSituationElements returns each PtSituationElement attributed to operator
// as a standalone XML fragment. An empty operator matches all.
func (d *Document) PtSituationElements(operator string) ([][]byte, error) {
	return d.fragments("PtSituationElement", "ParticipantRef", operator)
}

func (d *Document) fragments(tag, refTag, operator string) ([][]byte, error) {
	var path string
	if operator == "" {
		path = fmt.Sprintf("//%s", tag)
	} else {
		path = fmt.Sprintf("//%s[%s='%s']", tag, refTag, operator)
	}

	var out [][]byte
	for _, el := range d.doc.FindElements(path) {
		var frag = etree.NewDocument()
		frag.SetRoot(el.Copy())

		data, err := frag.WriteToBytes()
		if err != nil {
			return nil, fmt.Errorf("serializing %s fragment: %w", tag, err)
		}
		out = append(out, data)
	}
	return out, nil
}
