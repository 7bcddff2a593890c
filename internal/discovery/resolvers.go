package discovery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ResolveFunc derives a label for a field from the DOM snapshot.
type ResolveFunc func(doc, el *goquery.Selection) (string, bool)

// Resolver is a named label-resolution step
type Resolver struct {
	Name    string
	Resolve ResolveFunc
}

// DefaultResolvers returns the label lookup order: field attributes, explicit
// label[for], enclosing label, preceding sibling label, then the first label in
// the nearest container.
func DefaultResolvers() []Resolver {
	return []Resolver{
		{Name: "attribute", Resolve: AttributeLabel},
		{Name: "label_for", Resolve: LabelFor},
		{Name: "ancestor_label", Resolve: AncestorLabel},
		{Name: "sibling_label", Resolve: PreviousSiblingLabel},
		{Name: "container_label", Resolve: ContainerLabel},
	}
}

// CleanLabel collapses runs of whitespace and trims the result.
func CleanLabel(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func nonEmpty(s string) (string, bool) {
	s = CleanLabel(s)
	return s, s != ""
}

// AttributeLabel uses aria-label, then placeholder.
func AttributeLabel(_, el *goquery.Selection) (string, bool) {
	for _, attr := range []string{"aria-label", "placeholder"} {
		if v, ok := nonEmpty(el.AttrOr(attr, "")); ok {
			return v, true
		}
	}
	return "", false
}

// LabelFor finds a label whose for attribute names the field's id.
func LabelFor(doc, el *goquery.Selection) (string, bool) {
	id := el.AttrOr("id", "")
	if id == "" {
		return "", false
	}
	label := doc.Find("label[for]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.AttrOr("for", "") == id
	}).First()
	if label.Length() == 0 {
		return "", false
	}
	return nonEmpty(label.Text())
}

// AncestorLabel uses the label element wrapping the field.
func AncestorLabel(_, el *goquery.Selection) (string, bool) {
	label := el.Closest("label")
	if label.Length() == 0 {
		return "", false
	}
	return nonEmpty(label.Text())
}

// PreviousSiblingLabel uses the nearest label preceding the field among its siblings.
func PreviousSiblingLabel(_, el *goquery.Selection) (string, bool) {
	label := el.PrevAllFiltered("label").First()
	if label.Length() == 0 {
		return "", false
	}
	return nonEmpty(label.Text())
}

// ContainerLabel uses the first label inside the nearest div, section, li or
// fieldset ancestor. Only the nearest container is consulted.
func ContainerLabel(_, el *goquery.Selection) (string, bool) {
	container := el.Closest("div, section, li, fieldset")
	if container.Length() == 0 {
		return "", false
	}
	label := container.Find("label").First()
	if label.Length() == 0 {
		return "", false
	}
	return nonEmpty(label.Text())
}
