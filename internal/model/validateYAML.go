package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Разрешённые ключи для объектов
var allowedModelKeys = map[string]bool{
	"database":           true,
	"table":              true,
	"description":        true,
	"key_field":          true,
	"main_subject_field": true,
	"order_by":           true,
	"page_size":          true,
	"hard_cap":           true,
	"exclude_fields":     true,
	"show_fields":        true,
	"codings":            true,
	"fixed_constraint":   true,
	"geographic":         true,
	"vendor":             true,
	"record_link":        true,
	"headings":           true,
	"ignore_keys":        true,
	"fields":             true,
}

var allowedGeographicKeys = map[string]bool{
	"enabled":     true,
	"field":       true,
	"true_within": true,
	"srid":        true,
}

var allowedFieldKeys = map[string]bool{
	"name":     true,
	"type":     true,
	"nullable": true,
}

// validateYAMLNode checks the structure of a definition before decoding so
// that typos in keys are reported instead of silently ignored.
func validateYAMLNode(node *yaml.Node, context string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected mapping", context)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		if !allowedModelKeys[key] {
			return fmt.Errorf("%s: unknown key '%s' (line %d)", context, key, node.Content[i].Line)
		}
		switch key {
		case "geographic":
			if err := validateFlatMapping(val, allowedGeographicKeys, context+".geographic"); err != nil {
				return err
			}
		case "fields":
			if val.Kind != yaml.SequenceNode {
				return fmt.Errorf("%s.fields: expected sequence (line %d)", context, val.Line)
			}
			for j, item := range val.Content {
				if err := validateFlatMapping(item, allowedFieldKeys, fmt.Sprintf("%s.fields[%d]", context, j)); err != nil {
					return err
				}
			}
		case "codings":
			if err := validateCodings(val, context+".codings"); err != nil {
				return err
			}
		case "headings":
			if err := validateScalarMapping(val, context+".headings"); err != nil {
				return err
			}
		case "exclude_fields", "show_fields", "ignore_keys":
			if val.Kind != yaml.SequenceNode {
				return fmt.Errorf("%s.%s: expected sequence (line %d)", context, key, val.Line)
			}
		default:
			if val.Kind != yaml.ScalarNode {
				return fmt.Errorf("%s.%s: expected scalar (line %d)", context, key, val.Line)
			}
		}
	}
	return nil
}

func validateFlatMapping(node *yaml.Node, allowed map[string]bool, context string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected mapping (line %d)", context, node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !allowed[key] {
			return fmt.Errorf("%s: unknown key '%s' (line %d)", context, key, node.Content[i].Line)
		}
		if node.Content[i+1].Kind != yaml.ScalarNode {
			return fmt.Errorf("%s.%s: expected scalar (line %d)", context, key, node.Content[i+1].Line)
		}
	}
	return nil
}

func validateScalarMapping(node *yaml.Node, context string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected mapping (line %d)", context, node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i+1].Kind != yaml.ScalarNode {
			return fmt.Errorf("%s.%s: expected scalar (line %d)", context, node.Content[i].Value, node.Content[i+1].Line)
		}
	}
	return nil
}

func validateCodings(node *yaml.Node, context string) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected mapping (line %d)", context, node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		if err := validateScalarMapping(node.Content[i+1], context+"."+node.Content[i].Value); err != nil {
			return err
		}
	}
	return nil
}
