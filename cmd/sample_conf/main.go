package main

import (
	"flag"
	"reflect"
	"time"

	"github.com/LeoCommon/gprsclient/internal/client/config"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/serialport"
	"github.com/LeoCommon/gprsclient/internal/modem_manager/modem/sm5100b"
	"github.com/LeoCommon/gprsclient/pkg/log"
	"go.uber.org/zap"
)

// setDefaultFunc fills every zero value left so "omitempty" fields show up in the sample
func setDefaultFunc(v reflect.Value) {
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			v.Set(reflect.Append(v, reflect.New(v.Type().Elem()).Elem()))
		}
		for i := 0; i < v.Len(); i++ {
			setDefaultFunc(v.Index(i))
		}
	case reflect.Ptr:
		// Create new instance for pointer
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		setDefaultFunc(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)

			// Make durations not way too small
			if field.Type().ConvertibleTo(reflect.TypeOf(time.Duration(0))) {
				if field.Int() == 0 {
					field.SetInt(int64(10 * time.Second))
				}
				continue
			}

			if field.Kind() == reflect.String && field.String() == "" {
				field.SetString(v.Type().Field(i).Name)
				continue
			}
			setDefaultFunc(field)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Int() == 0 {
			v.SetInt(1)
		}
	case reflect.Bool:
		if !v.Bool() {
			v.SetBool(true)
		}
	}
}

func sample() config.MainConfig {
	session := sm5100b.DefaultConfig()

	return config.MainConfig{
		Modem: config.ModemConfig{
			Device:             "/dev/ttyUSB0",
			BaudRate:           serialport.DefaultBaudRate,
			DNS:                "8.8.8.8",
			LongTimeout:        config.TOMLDuration(session.LongTimeout),
			ShortTimeout:       config.TOMLDuration(session.ShortTimeout),
			StatusPollInterval: config.TOMLDuration(session.StatusPollInterval),
			StopUnits:          []string{"ModemManager.service"},
		},
		Request: config.RequestConfig{
			Host:      "example.com",
			Path:      "/",
			UserAgent: session.UserAgent,
			Interval:  config.TOMLDuration(config.DefaultRequestInterval),
		},
	}
}

func main() {
	out := flag.String("out", "./config/config.toml", "where to write the sample config")
	flag.Parse()

	log.Init(false)

	// Start from meaningful values and fill the rest so every option is listed
	cf := sample()
	setDefaultFunc(reflect.ValueOf(&cf).Elem())

	if err := config.NewManagerFor(*out, cf).Save(); err != nil {
		panic(err)
	}
	log.Info("sample config written", zap.String("path", *out))
}
