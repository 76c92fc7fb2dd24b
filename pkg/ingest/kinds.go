package ingest

import "github.com/Sumatoshi-tech/astdiff/pkg/tree"

// kindTable maps tree-sitter node types of one grammar to tree kinds.
// Types missing from the table become KindOther with the raw type name.
type kindTable map[string]tree.Kind

//nolint:gochecknoglobals // Immutable lookup tables.
var kindTables = map[string]kindTable{
	"go": {
		"source_file":                 tree.KindCompilationUnit,
		"package_clause":              tree.KindPackageDeclaration,
		"import_declaration":          tree.KindImportDeclaration,
		"type_declaration":            tree.KindTypeDeclaration,
		"function_declaration":        tree.KindMethodDeclaration,
		"method_declaration":          tree.KindMethodDeclaration,
		"field_declaration":           tree.KindFieldDeclaration,
		"parameter_declaration":       tree.KindSingleVariableDeclaration,
		"var_declaration":             tree.KindVariableDeclarationStatement,
		"short_var_declaration":       tree.KindVariableDeclarationStatement,
		"var_spec":                    tree.KindVariableDeclarationFragment,
		"block":                       tree.KindBlock,
		"func_literal":                tree.KindLambdaExpression,
		"expression_statement":        tree.KindExpressionStatement,
		"call_expression":             tree.KindMethodInvocation,
		"argument_list":               tree.KindMethodInvocationArguments,
		"composite_literal":           tree.KindClassInstanceCreation,
		"assignment_statement":        tree.KindAssignment,
		"binary_expression":           tree.KindInfixExpression,
		"unary_expression":            tree.KindPrefixExpression,
		"selector_expression":         tree.KindFieldAccess,
		"if_statement":                tree.KindIfStatement,
		"for_statement":               tree.KindForStatement,
		"expression_switch_statement": tree.KindSwitchStatement,
		"type_switch_statement":       tree.KindSwitchStatement,
		"expression_case":             tree.KindSwitchCase,
		"type_case":                   tree.KindSwitchCase,
		"default_case":                tree.KindSwitchCase,
		"return_statement":            tree.KindReturnStatement,
		"break_statement":             tree.KindBreakStatement,
		"continue_statement":          tree.KindContinueStatement,
		"identifier":                  tree.KindSimpleName,
		"field_identifier":            tree.KindSimpleName,
		"package_identifier":          tree.KindSimpleName,
		"type_identifier":             tree.KindSimpleType,
		"qualified_type":              tree.KindQualifiedName,
		"interpreted_string_literal":  tree.KindStringLiteral,
		"raw_string_literal":          tree.KindStringLiteral,
		"int_literal":                 tree.KindNumberLiteral,
		"float_literal":               tree.KindNumberLiteral,
		"true":                        tree.KindBooleanLiteral,
		"false":                       tree.KindBooleanLiteral,
		"nil":                         tree.KindNullLiteral,
		"comment":                     tree.KindComment,
	},
	"java": {
		"program":                        tree.KindCompilationUnit,
		"package_declaration":            tree.KindPackageDeclaration,
		"import_declaration":             tree.KindImportDeclaration,
		"class_declaration":              tree.KindTypeDeclaration,
		"interface_declaration":          tree.KindTypeDeclaration,
		"record_declaration":             tree.KindTypeDeclaration,
		"enum_declaration":               tree.KindEnumDeclaration,
		"enum_constant":                  tree.KindEnumConstantDeclaration,
		"field_declaration":              tree.KindFieldDeclaration,
		"method_declaration":             tree.KindMethodDeclaration,
		"constructor_declaration":        tree.KindMethodDeclaration,
		"formal_parameter":               tree.KindSingleVariableDeclaration,
		"local_variable_declaration":     tree.KindVariableDeclarationStatement,
		"variable_declarator":            tree.KindVariableDeclarationFragment,
		"block":                          tree.KindBlock,
		"constructor_body":               tree.KindBlock,
		"lambda_expression":              tree.KindLambdaExpression,
		"expression_statement":           tree.KindExpressionStatement,
		"method_invocation":              tree.KindMethodInvocation,
		"argument_list":                  tree.KindMethodInvocationArguments,
		"object_creation_expression":     tree.KindClassInstanceCreation,
		"assignment_expression":          tree.KindAssignment,
		"binary_expression":              tree.KindInfixExpression,
		"unary_expression":               tree.KindPrefixExpression,
		"ternary_expression":             tree.KindConditionalExpression,
		"field_access":                   tree.KindFieldAccess,
		"if_statement":                   tree.KindIfStatement,
		"for_statement":                  tree.KindForStatement,
		"enhanced_for_statement":         tree.KindEnhancedForStatement,
		"while_statement":                tree.KindWhileStatement,
		"do_statement":                   tree.KindDoStatement,
		"switch_expression":              tree.KindSwitchStatement,
		"switch_block_statement_group":   tree.KindSwitchCase,
		"switch_rule":                    tree.KindSwitchCase,
		"return_statement":               tree.KindReturnStatement,
		"break_statement":                tree.KindBreakStatement,
		"continue_statement":             tree.KindContinueStatement,
		"throw_statement":                tree.KindThrowStatement,
		"try_statement":                  tree.KindTryStatement,
		"catch_clause":                   tree.KindCatchClause,
		"identifier":                     tree.KindSimpleName,
		"scoped_identifier":              tree.KindQualifiedName,
		"type_identifier":                tree.KindSimpleType,
		"integral_type":                  tree.KindPrimitiveType,
		"floating_point_type":            tree.KindPrimitiveType,
		"boolean_type":                   tree.KindPrimitiveType,
		"void_type":                      tree.KindPrimitiveType,
		"modifiers":                      tree.KindModifier,
		"annotation":                     tree.KindAnnotation,
		"marker_annotation":              tree.KindAnnotation,
		"string_literal":                 tree.KindStringLiteral,
		"decimal_integer_literal":        tree.KindNumberLiteral,
		"decimal_floating_point_literal": tree.KindNumberLiteral,
		"hex_integer_literal":            tree.KindNumberLiteral,
		"true":                           tree.KindBooleanLiteral,
		"false":                          tree.KindBooleanLiteral,
		"null_literal":                   tree.KindNullLiteral,
		"line_comment":                   tree.KindComment,
		"block_comment":                  tree.KindComment,
	},
}

// contextualKind resolves types whose kind depends on the parent type.
func contextualKind(nodeType, parentType string) (tree.Kind, bool) {
	if nodeType == "class_body" && parentType == "object_creation_expression" {
		return tree.KindAnonymousClassDeclaration, true
	}

	return tree.KindOther, false
}

// receiverFields names, per invocation type, the field wrapped in a
// METHOD_INVOCATION_RECEIVER node.
//
//nolint:gochecknoglobals // Immutable lookup table.
var receiverFields = map[string]string{
	"method_invocation": "object",
}
