// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package register describes the registers of a LAC1550 node: the type tag
// of each register selects how its value bytes are encoded on the wire.
package register

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the decode rule selected by a type tag.
type Kind uint8

const (
	KindRaw Kind = iota
	KindUnsigned
	KindSigned
	KindBool
	KindEnum
	KindDate
	KindTime
	KindText
)

var kindNames = [...]string{
	KindRaw:      "raw",
	KindUnsigned: "unsigned",
	KindSigned:   "signed",
	KindBool:     "bool",
	KindEnum:     "enum",
	KindDate:     "date",
	KindTime:     "time",
	KindText:     "text",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// TypeTag is the register type code reported by the firmware (REGDEF).
type TypeTag byte

// Type tags
const (
	TypeNone              TypeTag = 0x01
	TypeNode              TypeTag = 0x02
	TypeRegVers           TypeTag = 0x03
	TypeSubRegs           TypeTag = 0x04
	TypeRegDef            TypeTag = 0x05
	TypeAddress           TypeTag = 0x07
	TypeType              TypeTag = 0x08
	TypeSer               TypeTag = 0x09
	TypeRemoteServiceMode TypeTag = 0x0A
	TypeRTCTime           TypeTag = 0x0B
	TypeRTCDate           TypeTag = 0x0C
	TypeTimestamp         TypeTag = 0x0D
	TypeDevID             TypeTag = 0x0F
	TypeVers              TypeTag = 0x10
	TypeLogEntry          TypeTag = 0x11
	TypeEdipBMP           TypeTag = 0x20
	TypeEdipFW            TypeTag = 0x21
	TypeRemoteEdip        TypeTag = 0x30
	TypeRemoteAmp         TypeTag = 0x31
	TypeRemoteSeed        TypeTag = 0x32
	TypeRemoteSPI         TypeTag = 0x33
	TypeSaveSettings      TypeTag = 0x50
	TypeU16mA             TypeTag = 0x51
	TypeCalibDAC          TypeTag = 0x52
	TypeCalibADC          TypeTag = 0x53
	TypeS32mV             TypeTag = 0x54
	TypeU08Enum           TypeTag = 0x55
	TypeU08Bool           TypeTag = 0x56
	TypeS32ms             TypeTag = 0x57
	TypeS32               TypeTag = 0x58
	TypeS32mC             TypeTag = 0x59
	TypeS32uC             TypeTag = 0x5A
	TypeU32Hz             TypeTag = 0x5B
	TypeU32mHz            TypeTag = 0x5C
	TypeU32kHz            TypeTag = 0x5D
	TypeU32mW             TypeTag = 0x5E
	TypeS32uV             TypeTag = 0x5F
	TypeU32us             TypeTag = 0x60
	TypeS32mA             TypeTag = 0x61
	TypeS32mWK            TypeTag = 0x62
	TypeS32mJK            TypeTag = 0x63
	TypeU16Hz             TypeTag = 0x80
	TypeU16               TypeTag = 0x81
	TypeU16ms             TypeTag = 0x82
)

// TagInfo describes the wire encoding of a type tag. Size 0 means the value
// has no fixed length.
type TagInfo struct {
	Name string
	Kind Kind
	Size int
	Unit string
}

var tags = map[TypeTag]TagInfo{
	TypeNone:              {"NONE", KindRaw, 0, ""},
	TypeNode:              {"NODE", KindRaw, 0, ""},
	TypeRegVers:           {"REGVERS", KindUnsigned, 1, ""},
	TypeSubRegs:           {"SUBREGS", KindUnsigned, 1, ""},
	TypeRegDef:            {"REGDEF", KindEnum, 1, ""},
	TypeAddress:           {"ADDRESS", KindUnsigned, 1, ""},
	TypeType:              {"TYPE", KindEnum, 1, ""},
	TypeSer:               {"SER", KindText, 0, ""},
	TypeRemoteServiceMode: {"REMOTE_SERVICEMODE", KindBool, 1, ""},
	TypeRTCTime:           {"RTCTIME", KindTime, 3, ""},
	TypeRTCDate:           {"RTCDATE", KindDate, 3, ""},
	TypeTimestamp:         {"TSTAMP", KindUnsigned, 4, "s"},
	TypeDevID:             {"DEVID", KindRaw, 0, ""},
	TypeVers:              {"VERS", KindText, 0, ""},
	TypeLogEntry:          {"LOGENTRY", KindRaw, 0, ""},
	TypeEdipBMP:           {"EDIP_BMP", KindRaw, 0, ""},
	TypeEdipFW:            {"EDIP_FW", KindRaw, 0, ""},
	TypeRemoteEdip:        {"REMOTE_EDIP", KindRaw, 0, ""},
	TypeRemoteAmp:         {"REMOTE_AMP", KindRaw, 0, ""},
	TypeRemoteSeed:        {"REMOTE_SEED", KindRaw, 0, ""},
	TypeRemoteSPI:         {"REMOTE_SPI", KindRaw, 0, ""},
	TypeSaveSettings:      {"SAVESETTINGS", KindBool, 1, ""},
	TypeU16mA:             {"U16_mA", KindUnsigned, 2, "mA"},
	TypeCalibDAC:          {"CALIB_DAC", KindRaw, 0, ""},
	TypeCalibADC:          {"CALIB_ADC", KindRaw, 0, ""},
	TypeS32mV:             {"S32_mV", KindSigned, 4, "mV"},
	TypeU08Enum:           {"U08_enum", KindEnum, 1, ""},
	TypeU08Bool:           {"U08_bool", KindBool, 1, ""},
	TypeS32ms:             {"S32_ms", KindSigned, 4, "ms"},
	TypeS32:               {"S32", KindSigned, 4, ""},
	TypeS32mC:             {"S32_mC", KindSigned, 4, "m°C"},
	TypeS32uC:             {"S32_uC", KindSigned, 4, "µ°C"},
	TypeU32Hz:             {"U32_Hz", KindUnsigned, 4, "Hz"},
	TypeU32mHz:            {"U32_mHz", KindUnsigned, 4, "mHz"},
	TypeU32kHz:            {"U32_kHz", KindUnsigned, 4, "kHz"},
	TypeU32mW:             {"U32_mW", KindUnsigned, 4, "mW"},
	TypeS32uV:             {"S32_uV", KindSigned, 4, "µV"},
	TypeU32us:             {"U32_us", KindUnsigned, 4, "µs"},
	TypeS32mA:             {"S32_mA", KindSigned, 4, "mA"},
	TypeS32mWK:            {"S32_mW_K", KindSigned, 4, "mW/K"},
	TypeS32mJK:            {"S32_mJ_K", KindSigned, 4, "mJ/K"},
	TypeU16Hz:             {"U16_Hz", KindUnsigned, 2, "Hz"},
	TypeU16:               {"U16", KindUnsigned, 2, ""},
	TypeU16ms:             {"U16_ms", KindUnsigned, 2, "ms"},
}

var tagsByName = func() map[string]TypeTag {
	m := make(map[string]TypeTag, len(tags))
	for t, info := range tags {
		m[strings.ToUpper(info.Name)] = t
	}
	return m
}()

// Info returns the encoding of t. Unknown tags are treated as raw bytes.
func (t TypeTag) Info() TagInfo {
	if info, ok := tags[t]; ok {
		return info
	}
	return TagInfo{Name: fmt.Sprintf("%#02x", byte(t)), Kind: KindRaw}
}

// Known reports whether t is a defined type tag.
func (t TypeTag) Known() bool {
	_, ok := tags[t]
	return ok
}

func (t TypeTag) String() string {
	return t.Info().Name
}

// ParseTypeTag accepts a tag name (case-insensitive, with or without the
// REGDEF_ prefix) or a numeric code.
func ParseTypeTag(s string) (TypeTag, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.TrimPrefix(name, "REGDEF_")
	if t, ok := tagsByName[name]; ok {
		return t, nil
	}
	n, err := strconv.ParseUint(name, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("register: unknown type %q", s)
	}
	return TypeTag(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (t TypeTag) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TypeTag) UnmarshalText(text []byte) error {
	v, err := ParseTypeTag(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
