package tree

// Kind is a closed tag over the AST node categories the diff engine knows about.
// Node kinds that are not in the table are stored as [KindOther] together with
// their raw name (see [Node.OtherKind]).
type Kind uint16

// Known node kinds.
const (
	KindOther Kind = iota
	KindSynthetic
	KindCompilationUnit
	KindPackageDeclaration
	KindImportDeclaration
	KindTypeDeclaration
	KindEnumDeclaration
	KindEnumConstantDeclaration
	KindFieldDeclaration
	KindMethodDeclaration
	KindSingleVariableDeclaration
	KindVariableDeclarationStatement
	KindVariableDeclarationFragment
	KindBlock
	KindAnonymousClassDeclaration
	KindLambdaExpression
	KindExpressionStatement
	KindMethodInvocation
	KindMethodInvocationReceiver
	KindMethodInvocationArguments
	KindClassInstanceCreation
	KindAssignment
	KindInfixExpression
	KindPrefixExpression
	KindConditionalExpression
	KindFieldAccess
	KindIfStatement
	KindForStatement
	KindEnhancedForStatement
	KindWhileStatement
	KindDoStatement
	KindSwitchStatement
	KindSwitchCase
	KindReturnStatement
	KindBreakStatement
	KindContinueStatement
	KindThrowStatement
	KindTryStatement
	KindCatchClause
	KindSimpleName
	KindQualifiedName
	KindSimpleType
	KindPrimitiveType
	KindModifier
	KindAnnotation
	KindStringLiteral
	KindNumberLiteral
	KindBooleanLiteral
	KindNullLiteral
	KindComment

	kindCount
)

//nolint:gochecknoglobals // Immutable lookup table.
var kindNames = [kindCount]string{
	KindOther:                        "Other",
	KindSynthetic:                    "Synthetic",
	KindCompilationUnit:              "CompilationUnit",
	KindPackageDeclaration:           "PackageDeclaration",
	KindImportDeclaration:            "ImportDeclaration",
	KindTypeDeclaration:              "TypeDeclaration",
	KindEnumDeclaration:              "EnumDeclaration",
	KindEnumConstantDeclaration:      "EnumConstantDeclaration",
	KindFieldDeclaration:             "FieldDeclaration",
	KindMethodDeclaration:            "MethodDeclaration",
	KindSingleVariableDeclaration:    "SingleVariableDeclaration",
	KindVariableDeclarationStatement: "VariableDeclarationStatement",
	KindVariableDeclarationFragment:  "VariableDeclarationFragment",
	KindBlock:                        "Block",
	KindAnonymousClassDeclaration:    "AnonymousClassDeclaration",
	KindLambdaExpression:             "LambdaExpression",
	KindExpressionStatement:          "ExpressionStatement",
	KindMethodInvocation:             "MethodInvocation",
	KindMethodInvocationReceiver:     "METHOD_INVOCATION_RECEIVER",
	KindMethodInvocationArguments:    "METHOD_INVOCATION_ARGUMENTS",
	KindClassInstanceCreation:        "ClassInstanceCreation",
	KindAssignment:                   "Assignment",
	KindInfixExpression:              "InfixExpression",
	KindPrefixExpression:             "PrefixExpression",
	KindConditionalExpression:        "ConditionalExpression",
	KindFieldAccess:                  "FieldAccess",
	KindIfStatement:                  "IfStatement",
	KindForStatement:                 "ForStatement",
	KindEnhancedForStatement:         "EnhancedForStatement",
	KindWhileStatement:               "WhileStatement",
	KindDoStatement:                  "DoStatement",
	KindSwitchStatement:              "SwitchStatement",
	KindSwitchCase:                   "SwitchCase",
	KindReturnStatement:              "ReturnStatement",
	KindBreakStatement:               "BreakStatement",
	KindContinueStatement:            "ContinueStatement",
	KindThrowStatement:               "ThrowStatement",
	KindTryStatement:                 "TryStatement",
	KindCatchClause:                  "CatchClause",
	KindSimpleName:                   "SimpleName",
	KindQualifiedName:                "QualifiedName",
	KindSimpleType:                   "SimpleType",
	KindPrimitiveType:                "PrimitiveType",
	KindModifier:                     "Modifier",
	KindAnnotation:                   "Annotation",
	KindStringLiteral:                "StringLiteral",
	KindNumberLiteral:                "NumberLiteral",
	KindBooleanLiteral:               "BooleanLiteral",
	KindNullLiteral:                  "NullLiteral",
	KindComment:                      "Comment",
}

//nolint:gochecknoglobals // Built once from kindNames.
var kindByName = func() map[string]Kind {
	index := make(map[string]Kind, kindCount)

	for kind := range kindCount {
		index[kindNames[kind]] = kind
	}

	return index
}()

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if k >= kindCount {
		return kindNames[KindOther]
	}

	return kindNames[k]
}

// ParseKind resolves a kind name. Unknown names resolve to [KindOther] and
// ok is false; callers keep the raw name as the node's OtherKind.
func ParseKind(name string) (kind Kind, ok bool) {
	kind, ok = kindByName[name]
	if !ok || kind == KindOther {
		return KindOther, false
	}

	return kind, true
}

// KindSet is a set of node kinds.
type KindSet map[Kind]struct{}

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	set := make(KindSet, len(kinds))

	for _, kind := range kinds {
		set[kind] = struct{}{}
	}

	return set
}

// Has reports whether kind is in the set. A nil set contains nothing.
func (s KindSet) Has(kind Kind) bool {
	_, ok := s[kind]

	return ok
}
