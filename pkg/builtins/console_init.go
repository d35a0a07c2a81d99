package builtins

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/nooga/cadence/pkg/value"
)

type ConsoleInitializer struct{}

func (c *ConsoleInitializer) Name() string {
	return "console"
}

func (c *ConsoleInitializer) Priority() int {
	return PriorityConsole
}

// console holds the per-realm state behind group, count and time.
type console struct {
	stdout, stderr io.Writer
	indent         int
	counts         map[string]int
	timers         map[string]time.Time
}

// formatArgs applies printf-style substitutions from a leading string
// argument (%s %d %i %f %o %O %%) and joins the rest with spaces.
func formatArgs(args []value.Value) string {
	if len(args) == 0 {
		return ""
	}
	var parts []string
	rest := args
	if format, ok := args[0].(value.String); ok && strings.IndexByte(string(format), '%') >= 0 {
		rest = args[1:]
		var b strings.Builder
		f := string(format)
		for i := 0; i < len(f); i++ {
			if f[i] != '%' || i+1 >= len(f) {
				b.WriteByte(f[i])
				continue
			}
			verb := f[i+1]
			if verb == '%' {
				b.WriteByte('%')
				i++
				continue
			}
			if !strings.ContainsRune("sdifoOj", rune(verb)) || len(rest) == 0 {
				b.WriteByte(f[i])
				continue
			}
			arg := rest[0]
			rest = rest[1:]
			i++
			switch verb {
			case 's':
				if s, ok := arg.(value.String); ok {
					b.WriteString(string(s))
				} else {
					b.WriteString(Inspect(arg))
				}
			case 'd', 'i':
				n, ok := arg.(value.Number)
				switch {
				case !ok:
					b.WriteString("NaN")
				case verb == 'i':
					b.WriteString(value.NumberToString(math.Trunc(float64(n))))
				default:
					b.WriteString(value.NumberToString(float64(n)))
				}
			case 'f':
				if n, ok := arg.(value.Number); ok {
					b.WriteString(value.NumberToString(float64(n)))
				} else {
					b.WriteString("NaN")
				}
			default:
				b.WriteString((&inspector{seen: make(map[*value.Object]bool)}).inspect(arg, true, 0))
			}
		}
		parts = append(parts, b.String())
	}
	for _, a := range rest {
		parts = append(parts, Inspect(a))
	}
	return strings.Join(parts, " ")
}

func (con *console) print(w io.Writer, line string) {
	pad := strings.Repeat("  ", con.indent)
	for _, l := range strings.Split(line, "\n") {
		fmt.Fprintln(w, pad+l)
	}
}

func labelArg(args []value.Value) string {
	if len(args) > 0 && !value.IsUndefined(args[0]) {
		return Inspect(args[0])
	}
	return "default"
}

func (c *ConsoleInitializer) InitRuntime(ctx *RuntimeContext) error {
	con := &console{
		stdout: ctx.Stdout,
		stderr: ctx.Stderr,
		counts: make(map[string]int),
		timers: make(map[string]time.Time),
	}
	consoleObj := value.NewObject(ctx.ObjectPrototype)
	tag(consoleObj, "console")

	undefined := value.NormalCompletion(value.Undefined)
	printer := func(name string, w io.Writer) {
		ctx.Method(consoleObj, name, 0, func(_ value.Value, args []value.Value) value.Completion {
			con.print(w, formatArgs(args))
			return undefined
		})
	}
	printer("log", con.stdout)
	printer("info", con.stdout)
	printer("debug", con.stdout)
	printer("error", con.stderr)
	printer("warn", con.stderr)
	ctx.Method(consoleObj, "trace", 0, func(_ value.Value, args []value.Value) value.Completion {
		con.print(con.stderr, strings.TrimSpace("Trace: "+formatArgs(args)))
		return undefined
	})

	ctx.Method(consoleObj, "group", 0, func(_ value.Value, args []value.Value) value.Completion {
		if len(args) > 0 {
			con.print(con.stdout, formatArgs(args))
		}
		con.indent++
		return undefined
	})
	ctx.Method(consoleObj, "groupEnd", 0, func(value.Value, []value.Value) value.Completion {
		if con.indent > 0 {
			con.indent--
		}
		return undefined
	})
	ctx.Method(consoleObj, "count", 0, func(_ value.Value, args []value.Value) value.Completion {
		label := labelArg(args)
		con.counts[label]++
		con.print(con.stdout, fmt.Sprintf("%s: %d", label, con.counts[label]))
		return undefined
	})
	ctx.Method(consoleObj, "countReset", 0, func(_ value.Value, args []value.Value) value.Completion {
		delete(con.counts, labelArg(args))
		return undefined
	})
	ctx.Method(consoleObj, "time", 0, func(_ value.Value, args []value.Value) value.Completion {
		con.timers[labelArg(args)] = time.Now()
		return undefined
	})
	ctx.Method(consoleObj, "timeEnd", 0, func(_ value.Value, args []value.Value) value.Completion {
		label := labelArg(args)
		if start, ok := con.timers[label]; ok {
			con.print(con.stdout, fmt.Sprintf("%s: %.3fms", label, float64(time.Since(start).Microseconds())/1000))
			delete(con.timers, label)
		}
		return undefined
	})

	ctx.DefineGlobal("console", consoleObj)
	return nil
}
