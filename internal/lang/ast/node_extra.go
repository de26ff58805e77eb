package ast

// IfStmt represents conditional branches inside a function body.
// Example: "if balance >= amount { State.balances[from] -= amount; } else { revert(); }"
type IfStmt struct {
	Pos       Position
	EndPos    Position
	Condition Expr
	ThenBlock FunctionBlock
	ElseBlock *FunctionBlock
	metadata  *Metadata
}

// AssertStmt represents the legacy "assert!(...)" form kept for compatibility
// with callers that still walk it; live contracts use RequireStmt instead.
type AssertStmt struct {
	Pos      Position
	EndPos   Position
	Args     []Expr
	metadata *Metadata
}

// RefVariableType represents a reference type annotation like "&U256" or "&mut U256".
type RefVariableType struct {
	Pos      Position
	EndPos   Position
	Mut      bool
	Target   *VariableType
	metadata *Metadata
}

// Module is the legacy module-level container predating contract-scoped
// declarations. Nothing in the current parser constructs one; it is kept so
// existing metadata/printing code that still switches on *Module compiles.
type Module struct {
	Pos         Position
	EndPos      Position
	Attributes  []Attribute
	Name        Ident
	ModuleItems []ModuleItem
	metadata    *Metadata
}

func (s *IfStmt) NodePos() Position    { return s.Pos }
func (s *IfStmt) NodeEndPos() Position { return s.EndPos }
func (*IfStmt) NodeType() NodeType     { return IF_STMT }
func (s *IfStmt) GetMetadata() *Metadata  { return s.metadata }
func (s *IfStmt) SetMetadata(m *Metadata) { s.metadata = m }

func (r *RequireStmt) NodePos() Position    { return r.Pos }
func (r *RequireStmt) NodeEndPos() Position { return r.EndPos }
func (*RequireStmt) NodeType() NodeType     { return REQUIRE_STMT }
func (r *RequireStmt) GetMetadata() *Metadata  { return r.metadata }
func (r *RequireStmt) SetMetadata(m *Metadata) { r.metadata = m }

func (ix *IndexExpr) NodePos() Position    { return ix.Pos }
func (ix *IndexExpr) NodeEndPos() Position { return ix.EndPos }
func (*IndexExpr) NodeType() NodeType      { return INDEX_EXPR }
func (ix *IndexExpr) GetMetadata() *Metadata  { return ix.metadata }
func (ix *IndexExpr) SetMetadata(m *Metadata) { ix.metadata = m }

func (t *TupleExpr) NodePos() Position    { return t.Pos }
func (t *TupleExpr) NodeEndPos() Position { return t.EndPos }
func (*TupleExpr) NodeType() NodeType     { return TUPLE_EXPR }
func (t *TupleExpr) GetMetadata() *Metadata  { return t.metadata }
func (t *TupleExpr) SetMetadata(m *Metadata) { t.metadata = m }
