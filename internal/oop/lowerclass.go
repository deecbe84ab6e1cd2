package oop

import (
	"fmt"

	"github.com/splanck/viper-sub011/internal/ast"
	"go.uber.org/zap"
)

// lowerClass emits every member of one class declaration: constructor,
// destructor, methods, property accessors, and static constructor.
func (d *Driver) lowerClass(cls *ast.ClassDecl) error {
	d.log.Debug("lowering class", zap.String("class", cls.Qualified))
	rec := d.idx.FindClass(cls.Qualified)
	if rec == nil {
		return fmt.Errorf("class %s missing from metadata index", cls.Qualified)
	}
	lay := d.layouts.Get(cls.Name)

	if cls.Ctor != nil {
		if _, err := d.emitCtor(rec, lay, cls.Ctor); err != nil {
			return fmt.Errorf("constructor: %w", err)
		}
	} else if cls.HasSynthCtor {
		if _, err := d.emitDefaultCtorIfNeeded(rec, lay); err != nil {
			return fmt.Errorf("synthesised constructor: %w", err)
		}
	}

	var dtorBody *ast.BlockStmt
	if cls.Dtor != nil {
		dtorBody = cls.Dtor.Body
	}
	if _, err := d.emitDtor(rec, lay, dtorBody); err != nil {
		return fmt.Errorf("destructor: %w", err)
	}

	for _, m := range cls.Methods {
		if _, err := d.emitMethod(rec, lay, m); err != nil {
			return fmt.Errorf("method %s: %w", m.Name, err)
		}
	}

	for _, p := range cls.Properties {
		if _, err := d.emitProperty(rec, lay, p); err != nil {
			return fmt.Errorf("property %s: %w", p.Name, err)
		}
	}

	if cls.HasStaticCtor && cls.StaticCtor != nil {
		if _, err := d.emitStaticCtor(rec, lay, cls.StaticCtor); err != nil {
			return fmt.Errorf("static constructor: %w", err)
		}
	}

	d.log.Debug("finished lowering class", zap.String("class", cls.Qualified))
	return nil
}
