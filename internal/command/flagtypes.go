package command

import (
	"strconv"
	"strings"
)

// optionalFloat is a float flag that records whether it was given.
type optionalFloat struct {
	set   bool
	value float64
}

func (f *optionalFloat) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatFloat(f.value, 'f', -1, 64)
}

func (f *optionalFloat) Set(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return err
	}
	f.set, f.value = true, v
	return nil
}

// optionalInt is an int flag that records whether it was given.
type optionalInt struct {
	set   bool
	value int
}

func (f *optionalInt) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.Itoa(f.value)
}

func (f *optionalInt) Set(s string) error {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	f.set, f.value = true, v
	return nil
}

// optionalBool is a bool flag that records whether it was given.
type optionalBool struct {
	set   bool
	value bool
}

func (f *optionalBool) String() string {
	if f == nil || !f.set {
		return ""
	}
	return strconv.FormatBool(f.value)
}

func (f *optionalBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	f.set, f.value = true, v
	return nil
}

func (f *optionalBool) IsBoolFlag() bool { return true }

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, ",")
}

func (l *stringList) Set(s string) error {
	*l = append(*l, s)
	return nil
}
