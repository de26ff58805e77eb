package ast

func (n NodeType) String() string {
	switch n {
	case ILLEGAL:
		return "ILLEGAL"
	case BAD_CONTRACT_ITEM:
		return "BAD_CONTRACT_ITEM"
	case BAD_MODULE_ITEM:
		return "BAD_MODULE_ITEM"
	case BAD_EXPR:
		return "BAD_EXPR"
	case DOC_COMMENT:
		return "DOC_COMMENT"
	case COMMENT:
		return "COMMENT"
	case MODULE:
		return "MODULE"
	case CONTRACT:
		return "CONTRACT"
	case ATTRIBUTE:
		return "ATTRIBUTE"
	case USE:
		return "USE"
	case NAMESPACE:
		return "NAMESPACE"
	case IMPORT_ITEM:
		return "IMPORT_ITEM"
	case STRUCT:
		return "STRUCT"
	case STRUCT_FIELD:
		return "STRUCT_FIELD"
	case TYPE:
		return "TYPE"
	case REF_TYPE:
		return "REF_TYPE"
	case IDENT:
		return "IDENT"
	case FUNCTION:
		return "FUNCTION"
	case FUNCTION_PARAM:
		return "FUNCTION_PARAM"
	case FUNCTION_BLOCK:
		return "FUNCTION_BLOCK"
	case EXPR_STMT:
		return "EXPR_STMT"
	case RETURN_STMT:
		return "RETURN_STMT"
	case LET_STMT:
		return "LET_STMT"
	case ASSIGN_STMT:
		return "ASSIGN_STMT"
	case ASSERT_STMT:
		return "ASSERT_STMT"
	case REQUIRE_STMT:
		return "REQUIRE_STMT"
	case IF_STMT:
		return "IF_STMT"
	case BINARY_EXPR:
		return "BINARY_EXPR"
	case UNARY_EXPR:
		return "UNARY_EXPR"
	case CALL_EXPR:
		return "CALL_EXPR"
	case FIELD_ACCESS_EXPR:
		return "FIELD_ACCESS_EXPR"
	case INDEX_EXPR:
		return "INDEX_EXPR"
	case STRUCT_LITERAL_EXPR:
		return "STRUCT_LITERAL_EXPR"
	case LITERAL_EXPR:
		return "LITERAL_EXPR"
	case IDENT_EXPR:
		return "IDENT_EXPR"
	case CALLEE_PATH:
		return "CALLEE_PATH"
	case STRUCT_LITERAL_FIELD:
		return "STRUCT_LITERAL_FIELD"
	case PAREN_EXPR:
		return "PAREN_EXPR"
	case TUPLE_EXPR:
		return "TUPLE_EXPR"
	default:
		return "NodeType(unknown)"
	}
}
