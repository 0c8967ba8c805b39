package llvm

// builtinDecl describes a runtime function by symbolic type names, resolved
// against the module's opaque QIR types by Emitter.typeOf.
type builtinDecl struct {
	name   string
	ret    string
	params []string
}

const (
	rtQubitAllocateArray = "__quantum__rt__qubit_allocate_array"
	rtQubitReleaseArray  = "__quantum__rt__qubit_release_array"
	rtArrayGetElementPtr = "__quantum__rt__array_get_element_ptr_1d"
	rtResultGetOne       = "__quantum__rt__result_get_one"
	rtResultEqual        = "__quantum__rt__result_equal"
	rtInitialize         = "__quantum__rt__initialize"
	rtFinalize           = "__quantum__rt__finalize"
	rtSetQreg            = "__quantum__rt__set_qreg"
	rtIntRecordOutput    = "__quantum__rt__int_record_output"
	rtDoubleRecordOutput = "__quantum__rt__double_record_output"
	rtBoolRecordOutput   = "__quantum__rt__bool_record_output"
	rtMessage            = "__quantum__rt__message"
	qisMz                = "__quantum__qis__mz__body"
	qisReset             = "__quantum__qis__reset__body"
)

func runtimeDecls() []builtinDecl {
	return []builtinDecl{
		{name: rtQubitAllocateArray, ret: "array", params: []string{"i64"}},
		{name: rtQubitReleaseArray, ret: "void", params: []string{"array"}},
		{name: rtArrayGetElementPtr, ret: "i8*", params: []string{"array", "i64"}},
		{name: rtResultGetOne, ret: "result", params: nil},
		{name: rtResultEqual, ret: "i1", params: []string{"result", "result"}},
		{name: rtInitialize, ret: "void", params: []string{"i32", "i8**"}},
		{name: rtFinalize, ret: "void", params: nil},
		{name: rtSetQreg, ret: "void", params: []string{"array"}},
		{name: rtIntRecordOutput, ret: "void", params: []string{"i64", "i8*"}},
		{name: rtDoubleRecordOutput, ret: "void", params: []string{"double", "i8*"}},
		{name: rtBoolRecordOutput, ret: "void", params: []string{"i1", "i8*"}},
		{name: rtMessage, ret: "void", params: []string{"i8*"}},
		{name: qisMz, ret: "result", params: []string{"qubit"}},
		{name: qisReset, ret: "void", params: []string{"qubit"}},
	}
}

// gateAliases maps source gate names to their QIR intrinsic stems.
var gateAliases = map[string]string{
	"cx":  "cnot",
	"CX":  "cnot",
	"ccx": "ccx",
	"id":  "i",
	"sdg": "s__adj",
	"tdg": "t__adj",
}

// GateSymbol returns the QIR function implementing gate name.
func GateSymbol(name string) string {
	if alias, ok := gateAliases[name]; ok {
		name = alias
	}
	if len(name) > 5 && name[len(name)-5:] == "__adj" {
		return "__quantum__qis__" + name
	}
	return "__quantum__qis__" + name + "__body"
}
