// Package logger builds the logrus logger shared by the server and its middlewares.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options are used to configure the logger.
type Options struct {
	Level  string
	Format string
	// File, when set, also writes entries into a rotated log file.
	File string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New returns a new well configured logger.
func New(opts Options) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if opts.Level != "" {
		var err error
		level, err = logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}

	var formatter logrus.Formatter
	switch opts.Format {
	case "", FormatText:
		formatter = new(logFormatter)
	case FormatJSON:
		formatter = &logrus.JSONFormatter{TimestampFormat: time.RFC3339}
	default:
		return nil, errors.Errorf("unsupported log format: %s", opts.Format)
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	l := logrus.New()
	l.SetLevel(level)
	l.SetOutput(output)
	l.SetFormatter(formatter)

	if opts.File != "" {
		l.Hooks.Add(&fileHook{
			rotate: &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    20, // megabytes
				MaxBackups: 2,
				MaxAge:     10, //days
			},
			formatter: formatter,
		})
	}

	return l, nil
}

// Discard returns a logger that writes nothing.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

////////////////////
//                //
// File hook      //
//                //
////////////////////

type fileHook struct {
	sync.Mutex
	rotate    *lumberjack.Logger
	formatter logrus.Formatter
}

// Fire writes the formatted entry to the rotated file.
func (hook *fileHook) Fire(entry *logrus.Entry) error {
	hook.Lock()
	defer hook.Unlock()

	msg, err := hook.formatter.Format(entry)
	if err != nil {
		log.Println("failed to generate string for entry:", err)
		return err
	}

	_, err = hook.rotate.Write(msg)
	return err
}

// Levels returns configured log levels.
func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

////////////////////
//                //
// Log formatter  //
//                //
////////////////////

type logFormatter struct{}

// Format implements Logrus formatter.
func (f *logFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	fields := ""
	if len(entry.Data) > 0 {
		fs := []string{}
		for k, v := range entry.Data {
			fs = append(fs, fmt.Sprintf("%s=%v", k, v))
		}
		sort.Strings(fs)
		fields = fmt.Sprintf(" (%s)", strings.Join(fs, ", "))
	}

	data := fmt.Sprintf("[%s] %+5s: %s%s\n",
		entry.Time.Format(time.RFC3339),
		strings.ToUpper(entry.Level.String()),
		entry.Message,
		fields,
	)
	return []byte(data), nil
}
