// Package bitfield packs and unpacks struct fields into integers using
// `bitfield:"<bits>"` struct tags. Adapted from the teacher's
// src/bitfield package (itself a simplified version of
// golang.org/x/text/internal/gen/bitfield): this module uses it to
// encode the MPU RBAR/RASR/RLAR register pairs (spec §4.5), which are
// bit-packed hardware formats rather than native Go structs. The
// syspage layout is byte-offset structured and is encoded with
// encoding/binary instead.
package bitfield

import (
	"fmt"
	"reflect"
)

// Config determines settings for packing and generation.
type Config struct {
	// NumBits fixes the maximum allowed bits for the integer
	// representation. If zero, no ceiling is enforced.
	NumBits uint
}

// Pack packs annotated bit ranges of struct x into an integer, fields
// in declaration order starting at bit 0. Only fields tagged
// `bitfield:"<bits>"` participate; untagged fields are skipped.
func Pack(x interface{}, c *Config) (packed uint64, err error) {
	if c == nil {
		c = &Config{NumBits: 64}
	}

	v := reflect.ValueOf(x)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("bitfield.Pack: expected struct, got %v", v.Kind())
	}

	t := v.Type()
	var bitOffset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("bitfield")
		if tag == "" {
			continue
		}

		bits, err := parseBitsTag(tag)
		if err != nil {
			return 0, fmt.Errorf("bitfield.Pack: invalid bitfield tag %q on field %s: %w", tag, field.Name, err)
		}
		if bits == 0 {
			continue
		}

		fieldValue := v.Field(i)
		var fieldBits uint64

		switch fieldValue.Kind() {
		case reflect.Bool:
			if fieldValue.Bool() {
				fieldBits = 1
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fieldBits = fieldValue.Uint()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			val := fieldValue.Int()
			if val < 0 {
				return 0, fmt.Errorf("bitfield.Pack: negative value %d for field %s", val, field.Name)
			}
			fieldBits = uint64(val)
		default:
			return 0, fmt.Errorf("bitfield.Pack: unsupported field type %v for field %s", fieldValue.Kind(), field.Name)
		}

		maxValue := uint64((1 << bits) - 1)
		if fieldBits > maxValue {
			return 0, fmt.Errorf("bitfield.Pack: value %d exceeds %d bits for field %s", fieldBits, bits, field.Name)
		}

		packed |= fieldBits << bitOffset
		bitOffset += bits
	}

	if c.NumBits > 0 && bitOffset > c.NumBits {
		return 0, fmt.Errorf("bitfield.Pack: total bits %d exceeds NumBits %d", bitOffset, c.NumBits)
	}

	return packed, nil
}

// parseBitsTag accepts both the teacher's "<methodName>,<bits>" /
// ",<bits>" tag shape and a bare "<bits>" shape, since this module's
// tags never need a generated accessor method name.
func parseBitsTag(tag string) (uint, error) {
	var bits uint
	if _, err := fmt.Sscanf(tag, ",%d", &bits); err == nil {
		return bits, nil
	}
	if _, err := fmt.Sscanf(tag, "%d", &bits); err == nil {
		return bits, nil
	}
	var name string
	if _, err := fmt.Sscanf(tag, "%s,%d", &name, &bits); err == nil {
		return bits, nil
	}
	return 0, fmt.Errorf("unrecognised bitfield tag shape")
}

// Unpack is Pack's inverse: it walks x's tagged fields in the same
// declaration order and writes each field's bits out of packed. x must
// be a pointer to a struct.
func Unpack(x interface{}, packed uint64) error {
	v := reflect.ValueOf(x)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bitfield.Unpack: expected pointer to struct, got %v", v.Kind())
	}
	v = v.Elem()
	t := v.Type()
	var bitOffset uint

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("bitfield")
		if tag == "" {
			continue
		}

		bits, err := parseBitsTag(tag)
		if err != nil {
			return fmt.Errorf("bitfield.Unpack: invalid bitfield tag %q on field %s: %w", tag, field.Name, err)
		}
		if bits == 0 {
			continue
		}

		mask := uint64((1 << bits) - 1)
		fieldBits := (packed >> bitOffset) & mask
		bitOffset += bits

		fieldValue := v.Field(i)
		if !fieldValue.CanSet() {
			return fmt.Errorf("bitfield.Unpack: field %s is unexported", field.Name)
		}

		switch fieldValue.Kind() {
		case reflect.Bool:
			fieldValue.SetBool(fieldBits != 0)
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fieldValue.SetUint(fieldBits)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fieldValue.SetInt(int64(fieldBits))
		default:
			return fmt.Errorf("bitfield.Unpack: unsupported field type %v for field %s", fieldValue.Kind(), field.Name)
		}
	}

	return nil
}
