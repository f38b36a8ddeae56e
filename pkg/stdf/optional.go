/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: optional.go
Description: Flag-gated optional fields. A record lists its optional fields as ordered
(bit, reader) pairs; applyOptional walks the list against the flags byte so offset
bookkeeping stays exact without nested conditionals.
*/

package stdf

// optionalField reads one flag-gated field (or group of fields) into T
type optionalField[T any] struct {
	bit  uint8
	read func(r *FieldReader, rec *T) error
}

// applyOptional performs the reads whose bit is set in flags, in list order.
func applyOptional[T any](r *FieldReader, flags uint8, fields []optionalField[T], rec *T) error {
	for _, f := range fields {
		if flags&f.bit == 0 {
			continue
		}
		if err := f.read(r, rec); err != nil {
			return err
		}
	}
	return nil
}

func readI1Ptr(r *FieldReader) (*int8, error) {
	v, err := r.I1()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readI2Ptr(r *FieldReader) (*int16, error) {
	v, err := r.I2()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readU4Ptr(r *FieldReader) (*uint32, error) {
	v, err := r.U4()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readI4Ptr(r *FieldReader) (*int32, error) {
	v, err := r.I4()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readR4Ptr(r *FieldReader) (*float32, error) {
	v, err := r.R4()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// readStrings reads consecutive Cn fields into the given targets.
func readStrings(r *FieldReader, targets ...*string) error {
	for _, t := range targets {
		s, err := r.Cn()
		if err != nil {
			return err
		}
		*t = s
	}
	return nil
}

var parametricOptional = []optionalField[ParametricTest]{
	{bit: PTROptScales, read: func(r *FieldReader, p *ParametricTest) (err error) {
		if p.ResultScale, err = readI1Ptr(r); err != nil {
			return err
		}
		if p.LowScale, err = readI1Ptr(r); err != nil {
			return err
		}
		p.HighScale, err = readI1Ptr(r)
		return err
	}},
	{bit: PTROptLowLimit, read: func(r *FieldReader, p *ParametricTest) (err error) {
		p.LowLimit, err = readR4Ptr(r)
		return err
	}},
	{bit: PTROptHighLimit, read: func(r *FieldReader, p *ParametricTest) (err error) {
		p.HighLimit, err = readR4Ptr(r)
		return err
	}},
	{bit: PTROptUnits, read: func(r *FieldReader, p *ParametricTest) (err error) {
		p.Units, err = r.Cn()
		return err
	}},
	{bit: PTROptLowSpec, read: func(r *FieldReader, p *ParametricTest) (err error) {
		p.LowSpec, err = readR4Ptr(r)
		return err
	}},
	{bit: PTROptHighSpec, read: func(r *FieldReader, p *ParametricTest) (err error) {
		p.HighSpec, err = readR4Ptr(r)
		return err
	}},
}

var functionalOptional = []optionalField[FunctionalTest]{
	{bit: FTROptCycleCount, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		f.CycleCount, err = readU4Ptr(r)
		return err
	}},
	{bit: FTROptRelVecAddr, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		f.RelVecAddr, err = readU4Ptr(r)
		return err
	}},
	{bit: FTROptRepeatCount, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		f.RepeatCount, err = readU4Ptr(r)
		return err
	}},
	{bit: FTROptFailCount, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		f.FailCount, err = readU4Ptr(r)
		return err
	}},
	{bit: FTROptFailAddress, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		if f.XFailAddr, err = readI4Ptr(r); err != nil {
			return err
		}
		f.YFailAddr, err = readI4Ptr(r)
		return err
	}},
	{bit: FTROptVectorOff, read: func(r *FieldReader, f *FunctionalTest) (err error) {
		f.VectorOffset, err = readI2Ptr(r)
		return err
	}},
	{bit: FTROptPatternText, read: func(r *FieldReader, f *FunctionalTest) error {
		return readStrings(r, &f.VectorName, &f.TimeSet, &f.OpCode)
	}},
	{bit: FTROptTestText, read: func(r *FieldReader, f *FunctionalTest) error {
		return readStrings(r, &f.Text, &f.AlarmID, &f.ProgramText, &f.ResultText)
	}},
}
