package vm

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVM(opts Options) (*VM, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	opts.Stdout = &out
	opts.Stderr = &errOut
	return New(opts), &out, &errOut
}

// runVM runs input on a fresh VM, once normally and once collecting
// before every allocation, and returns the printed output
func runVM(t *testing.T, input string) string {
	t.Helper()
	var outputs [2]string
	for i, stress := range []bool{false, true} {
		vm, out, errOut := newTestVM(Options{GC: GCPolicy{Stress: stress}})
		result, err := vm.Interpret(input)
		require.NoError(t, err, "stress=%v stderr=%s", stress, errOut.String())
		require.Equal(t, InterpretOK, result)
		assert.Equal(t, 0, vm.StackDepth(), "stack left over")
		outputs[i] = out.String()
	}
	assert.Equal(t, outputs[0], outputs[1], "stress GC changed the output")
	return outputs[0]
}

func TestVM_Programs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", "print 1 + 2 * 3; print (1 + 2) * 3; print 10 - 4 - 3; print 2 * 3 / 4; print -(1 + 2);",
			"7\n9\n3\n1.5\n-3\n"},
		{"infinities", "print 1 / 0; print -1 / 0; print 0 / 0;", "inf\n-inf\nnan\n"},
		{"number format", "print 0.1 + 0.2; print 1000000; print 3.0; print 123.456;", "0.3\n1e+06\n3\n123.456\n"},
		{"comparison", "print 1 < 2; print 2 <= 2; print 3 > 4; print 3 >= 3; print 1 == 1; print 1 != 1;",
			"true\ntrue\nfalse\ntrue\ntrue\nfalse\n"},
		{"equality across types", `print nil == false; print "a" == "a"; print 0 == "0"; print nil == nil;`,
			"false\ntrue\nfalse\ntrue\n"},
		{"truthiness", `print !nil; print !0; print !""; print !true;`, "true\nfalse\nfalse\nfalse\n"},
		{"concatenation", `print "foo" + "bar";`, "foobar\n"},
		{"interned strings", `var a = "x"; var b = "x"; print a == b; print "a" + "b" == "ab";`, "true\ntrue\n"},
		{"logical", `print nil or "x"; print false and 1; print 1 and 2; print 1 or 2; print nil and nil;`,
			"x\nfalse\n2\n1\nnil\n"},
		{"globals", "var a; print a; a = 3; print a; var a = 4; print a;", "nil\n3\n4\n"},
		{"chained assignment", "var a; var b; a = b = 5; print a; print b;", "5\n5\n"},
		{"shadowing", "{ var a = 1; { var a = a + 1; print a; } print a; }", "2\n1\n"},
		{"shadowing global", "var a = 1; { var a = a + 1; print a; } print a;", "2\n1\n"},
		{"shadowing enclosing local", "fun f() { var a = 1; fun g() { var a = a + 1; print a; } g(); print a; } f();",
			"2\n1\n"},
		{"shadowing native", "{ var clock = clock; print clock; }", "<native fn>\n"},
		{"block locals", "var a = \"global\"; { var a = \"local\"; print a; } print a;", "local\nglobal\n"},
		{"if else", `if (1 > 2) print "yes"; else print "no"; if (true) print "t"; if (nil) print "never";`,
			"no\nt\n"},
		{"while", "var i = 0; while (i < 3) { print i; i = i + 1; }", "0\n1\n2\n"},
		{"for", "for (var i = 0; i < 3; i = i + 1) print i;", "0\n1\n2\n"},
		{"for without clauses", "var i = 0; for (; i < 2;) { print i; i = i + 1; }", "0\n1\n"},
		{"for with expression initializer", "var i; for (i = 5; i < 7; i = i + 1) print i; print i;", "5\n6\n7\n"},
		{"functions", "fun add(a, b) { return a + b; } print add(1, 2); fun f() {} print f();", "3\nnil\n"},
		{"function values", "fun f() {} var g = f; print g; print clock;", "<fn f>\n<native fn>\n"},
		{"recursion", "fun fib(n) { if (n < 2) return n; return fib(n - 1) + fib(n - 2); } print fib(15);",
			"610\n"},
		{"local recursion", "{ fun fact(n) { if (n <= 1) return 1; return n * fact(n - 1); } print fact(5); }",
			"120\n"},
		{"return from nested blocks", `
fun find(limit) {
  for (var i = 0; i < 10; i = i + 1) {
    { var sq = i * i; if (sq > limit) return i; }
  }
  return -1;
}
print find(20);
print find(1000);`, "5\n-1\n"},
		{"counter closures", `
fun makeCounter() {
  var count = 0;
  fun inc() { count = count + 1; return count; }
  return inc;
}
var c1 = makeCounter();
var c2 = makeCounter();
print c1(); print c1(); print c2(); print c1();`, "1\n2\n1\n3\n"},
		{"capture by reference", `
var f;
{
  var x = 1;
  fun get() { return x; }
  f = get;
  x = 2;
  print f();
}
print f();`, "2\n2\n"},
		{"shared upvalue", `
var get; var set;
fun make() {
  var v = "a";
  fun g() { return v; }
  fun s(n) { v = n; }
  get = g; set = s;
}
make();
set("b");
print get();`, "b\n"},
		{"nested capture", `
fun outer() {
  var x = "outer";
  fun middle() {
    fun inner() { return x; }
    return inner;
  }
  return middle;
}
print outer()()();`, "outer\n"},
		{"loop variable capture", `
var fs;
for (var i = 0; i < 1; i = i + 1) { fun f() { return i; } fs = f; }
print fs();`, "1\n"},
		{"closures over parameters", `
fun adder(n) { fun add(m) { return n + m; } return add; }
var add2 = adder(2);
print add2(3);
print adder("x")("y");`, "5\nxy\n"},
		{"string building", `
var s = "";
for (var i = 0; i < 5; i = i + 1) s = s + "ab";
print s;`, "ababababab\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, runVM(t, tt.input))
		})
	}
}

func TestVM_GlobalsPersistAcrossRuns(t *testing.T) {
	vm, out, _ := newTestVM(Options{})

	_, err := vm.Interpret("var a = 1; fun inc() { a = a + 1; }")
	require.NoError(t, err)
	_, err = vm.Interpret("inc(); inc();")
	require.NoError(t, err)
	_, err = vm.Interpret("print a;")
	require.NoError(t, err)

	assert.Equal(t, "3\n", out.String())
	assert.Equal(t, []string{"a", "clock", "inc"}, vm.GlobalNames())
}

func TestVM_ShadowingGlobalFromEarlierRun(t *testing.T) {
	vm, out, _ := newTestVM(Options{})
	vm.SetGlobal("limit", NumberVal(10))

	_, err := vm.Interpret("var a = 1;")
	require.NoError(t, err)
	_, err = vm.Interpret("{ var a = a + 1; print a; } { var limit = limit * 2; print limit; }")
	require.NoError(t, err)

	assert.Equal(t, "2\n20\n", out.String())
}

func TestVM_GlobalAccessors(t *testing.T) {
	vm, out, _ := newTestVM(Options{})

	vm.SetGlobal("limit", NumberVal(42))
	_, err := vm.Interpret("print limit; var greeting = \"hi\";")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.String())

	v, ok := vm.Global("greeting")
	require.True(t, ok)
	assert.Equal(t, "hi", vm.Inspect(v))

	_, ok = vm.Global("missing")
	assert.False(t, ok)
}

func TestVM_Natives(t *testing.T) {
	vm, out, _ := newTestVM(Options{
		Natives: []NativeDef{{
			Name:  "sum",
			Arity: 2,
			Fn: func(args []Value) (Value, error) {
				return NumberVal(args[0].AsNumber() + args[1].AsNumber()), nil
			},
		}},
	})
	_, err := vm.Interpret("print sum(1, 2) + sum(3, 4);")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out.String())
}

func TestVM_Clock(t *testing.T) {
	saved := now
	defer func() { now = saved }()
	now = func() time.Time { return time.Unix(1700000000, 999) }

	assert.Equal(t, "1.7e+09\ntrue\n", runVM(t, "print clock(); print clock() - clock() == 0;"))
}

func TestVM_SetOutput(t *testing.T) {
	vm, out, _ := newTestVM(Options{})
	var other bytes.Buffer
	vm.SetOutput(&other)

	_, err := vm.Interpret("print 1;")
	require.NoError(t, err)
	assert.Empty(t, out.String())
	assert.Equal(t, "1\n", other.String())
}

func TestVM_GarbageIsCollected(t *testing.T) {
	vm, out, _ := newTestVM(Options{GC: GCPolicy{InitialThreshold: 64}})
	_, err := vm.Interpret(`
for (var i = 0; i < 500; i = i + 1) {
  var s = "tmp" + "value";
  fun f() { return s; }
}
print "done";`)
	require.NoError(t, err)
	assert.Equal(t, "done\n", out.String())

	h := vm.Heap()
	assert.Greater(t, h.Collections(), 0)
	assert.Greater(t, h.Freed(), 0)
	assert.Less(t, h.Live(), 200)
}

func TestVM_PrintCode(t *testing.T) {
	var code bytes.Buffer
	vm, out, _ := newTestVM(Options{PrintCode: true, TraceOut: &code})

	_, err := vm.Interpret("fun f() { return 1; } print f();")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out.String())

	// Functions are listed innermost first.
	listing := code.String()
	assert.Contains(t, listing, "== f ==\n")
	assert.Contains(t, listing, "== <script> ==\n")
	assert.Less(t, bytes.Index(code.Bytes(), []byte("== f ==")), bytes.Index(code.Bytes(), []byte("== <script> ==")))
}

func TestVM_TraceExecution(t *testing.T) {
	var trace bytes.Buffer
	vm, out, _ := newTestVM(Options{TraceExecution: true, TraceOut: &trace})

	_, err := vm.Interpret("print 1 + 2;")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out.String())

	assert.Equal(t, ""+
		"          [ <script> ]\n"+
		"0000    1 CONSTANT            0 '1'\n"+
		"          [ <script> ][ 1 ]\n"+
		"0002    | CONSTANT            1 '2'\n"+
		"          [ <script> ][ 1 ][ 2 ]\n"+
		"0004    | ADD\n"+
		"          [ <script> ][ 3 ]\n"+
		"0005    | PRINT\n"+
		"          [ <script> ]\n"+
		"0006    | NIL\n"+
		"          [ <script> ][ nil ]\n"+
		"0007    | RETURN\n", trace.String())
}

func TestInterpretResult_String(t *testing.T) {
	assert.Equal(t, "ok", InterpretOK.String())
	assert.Equal(t, "compile error", InterpretCompileError.String())
	assert.Equal(t, "runtime error", InterpretRuntimeError.String())
}
