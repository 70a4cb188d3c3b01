package ingest

import (
	"fmt"

	"github.com/agentic-research/keeper/api"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// HCL declarations look like:
//
//	controller "UsersController" {
//	  name      = "users"
//	  namespace = "admin."
//
//	  segment "users" {
//	    title = "Users"
//	  }
//
//	  action "List" {
//	    permission = "users.list"
//	    link {
//	      parent  = "users"
//	      title   = "All users"
//	      options = { icon = "list" }
//	    }
//	  }
//	}
//
// Segment and group blocks keep their relative order; the last one is the
// controller's fallback segment.
var (
	hclFileSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "version"}},
		Blocks:     []hcl.BlockHeaderSchema{{Type: "controller", LabelNames: []string{"class"}}},
	}
	hclControllerSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "name"}, {Name: "namespace"}},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: string(api.KindSegment), LabelNames: []string{"name"}},
			{Type: string(api.KindGroup), LabelNames: []string{"name"}},
			{Type: "action", LabelNames: []string{"method"}},
		},
	}
	hclActionSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{{Name: "name"}, {Name: "permission"}},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: string(api.KindLink)},
			{Type: string(api.KindView)},
		},
	}
)

// hclAnnotation is the body of a segment, group, link or view block.
type hclAnnotation struct {
	Parent   string    `hcl:"parent,optional"`
	Relative bool      `hcl:"relative,optional"`
	Title    string    `hcl:"title,optional"`
	Options  cty.Value `hcl:"options,optional"`
}

// ParseHCL decodes an HCL declaration file. filename is used in diagnostics.
func ParseHCL(filename string, src []byte) (*api.Declarations, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %s", filename, diags.Error())
	}

	content, diags := file.Body.Content(hclFileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %s", filename, diags.Error())
	}

	decls := &api.Declarations{}
	if err := decodeAttr(content.Attributes, "version", &decls.Version); err != nil {
		return nil, err
	}
	for _, block := range content.Blocks {
		ctrl, err := decodeHCLController(block)
		if err != nil {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, err)
		}
		decls.Controllers = append(decls.Controllers, ctrl)
	}
	return decls, nil
}

func decodeHCLController(block *hcl.Block) (api.Controller, error) {
	ctrl := api.Controller{Class: block.Labels[0], Name: block.Labels[0]}
	content, diags := block.Body.Content(hclControllerSchema)
	if diags.HasErrors() {
		return ctrl, diags
	}
	if err := decodeAttr(content.Attributes, "name", &ctrl.Name); err != nil {
		return ctrl, err
	}
	if err := decodeAttr(content.Attributes, "namespace", &ctrl.Namespace); err != nil {
		return ctrl, err
	}

	for _, b := range content.Blocks {
		switch b.Type {
		case "action":
			a, err := decodeHCLAction(b)
			if err != nil {
				return ctrl, fmt.Errorf("controller %s: %w", ctrl.Name, err)
			}
			ctrl.Actions = append(ctrl.Actions, a)
		default:
			ann, err := decodeHCLAnnotation(b)
			if err != nil {
				return ctrl, fmt.Errorf("controller %s: %w", ctrl.Name, err)
			}
			ann.Name = b.Labels[0]
			ctrl.Annotations = append(ctrl.Annotations, ann)
		}
	}
	return ctrl, nil
}

func decodeHCLAction(block *hcl.Block) (api.Action, error) {
	a := api.Action{Method: block.Labels[0]}
	content, diags := block.Body.Content(hclActionSchema)
	if diags.HasErrors() {
		return a, diags
	}
	if err := decodeAttr(content.Attributes, "name", &a.Name); err != nil {
		return a, err
	}
	if err := decodeAttr(content.Attributes, "permission", &a.Permission); err != nil {
		return a, err
	}
	for _, b := range content.Blocks {
		ann, err := decodeHCLAnnotation(b)
		if err != nil {
			return a, fmt.Errorf("action %s: %w", a.Method, err)
		}
		a.Annotations = append(a.Annotations, ann)
	}
	return a, nil
}

func decodeHCLAnnotation(block *hcl.Block) (api.Annotation, error) {
	kind, err := api.ParseKind(block.Type)
	if err != nil {
		return api.Annotation{}, err
	}
	var body hclAnnotation
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return api.Annotation{}, diags
	}
	ann := api.Annotation{
		Kind:     kind,
		Parent:   body.Parent,
		Relative: body.Relative,
		Title:    body.Title,
	}
	if !body.Options.IsNull() {
		if !body.Options.Type().IsObjectType() && !body.Options.Type().IsMapType() {
			return ann, fmt.Errorf("%s %s: options must be an object, got %s",
				block.Type, block.DefRange, body.Options.Type().FriendlyName())
		}
		opts, err := ctyToAny(body.Options)
		if err != nil {
			return ann, fmt.Errorf("%s %s: options: %w", block.Type, block.DefRange, err)
		}
		ann.Options, _ = opts.(map[string]any)
	}
	return ann, nil
}

func decodeAttr(attrs hcl.Attributes, name string, dst *string) error {
	attr, ok := attrs[name]
	if !ok {
		return nil
	}
	if diags := gohcl.DecodeExpression(attr.Expr, nil, dst); diags.HasErrors() {
		return diags
	}
	return nil
}

// ctyToAny converts a cty.Value into the generic Go shape used for options.
// Integral numbers become int64.
func ctyToAny(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	ty := val.Type()
	switch {
	case ty.Equals(cty.String):
		return val.AsString(), nil
	case ty.Equals(cty.Bool):
		return val.True(), nil
	case ty.Equals(cty.Number):
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == 0 {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			x, err := ctyToAny(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = x
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			x, err := ctyToAny(v)
			if err != nil {
				return nil, err
			}
			out = append(out, x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}
