package usecase

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
)

type CheckoutStep string

const (
	StepShipping     CheckoutStep = "shipping"
	StepPayment      CheckoutStep = "payment"
	StepReview       CheckoutStep = "review"
	StepConfirmation CheckoutStep = "confirmation"
)

type ShippingInput struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type PaymentInput struct {
	Method     string `json:"method"`
	CardName   string `json:"card_name"`
	CardNumber string `json:"card_number"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	CVV        string `json:"cvv"`
}

// チェックアウト1回分の状態。プロセス内だけに持つ（再起動で消える）。
// reviewからshipping/paymentへ戻っても入力は保持する。
// muは同一ユーザーの同時リクエスト（二度押し）を直列化する。
// ガード判定から遷移までは必ずmuを握ったまま行うこと。
type checkoutSession struct {
	mu sync.Mutex

	Step         CheckoutStep
	Shipping     ShippingInput
	Payment      PaymentInput
	PromoApplied bool

	//失敗後の再送で同じ注文になるよう、開始時に1つ発行する
	IdempotencyKey string

	OrderID     int64
	OrderNumber string

	//確定時に固定した金額内訳（カートはもう空なので再計算できない）
	Quote Quote
}

type CheckoutResponse struct {
	Step         CheckoutStep  `json:"step"`
	Shipping     ShippingInput `json:"shipping"`
	Payment      PaymentInput  `json:"payment"`
	PromoApplied bool          `json:"promo_applied"`
	Quote        Quote         `json:"quote"`
	OrderID      int64         `json:"order_id,omitempty"`
	OrderNumber  string        `json:"order_number,omitempty"`
}

// 注文確定イベントの発行先（Kafka実装 or noop）
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, orderID int64, orderNumber string, userID int64, totalPrice int64) error
}

// CheckoutUsecase は shipping→payment→review→confirmation の直線ウィザード。
type CheckoutUsecase struct {
	cfg          config.Config
	tx           repo.TransactionManager
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	userRepo     repo.UserRepository
	publisher    OrderEventPublisher

	//muはsessionsマップだけを守る。各セッションの中身はsession側のmuで守る。
	mu       sync.Mutex
	sessions map[int64]*checkoutSession
}

func NewCheckoutUsecase(
	cfg config.Config,
	tx repo.TransactionManager,
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	userRepo repo.UserRepository,
	publisher OrderEventPublisher,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		cfg:          cfg,
		tx:           tx,
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		userRepo:     userRepo,
		publisher:    publisher,
		sessions:     make(map[int64]*checkoutSession),
	}
}

// Start はチェックアウト開始。カートが空なら始められない。
// 配送先の名前とメールはユーザー情報からprefillする。
func (u *CheckoutUsecase) Start(ctx context.Context, userID int64) (CheckoutResponse, error) {
	if userID <= 0 {
		return CheckoutResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	subtotal, nonEmpty, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	if !nonEmpty {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	sess := &checkoutSession{
		Step:           StepShipping,
		IdempotencyKey: uuid.NewString(),
	}

	//prefill
	user, err := u.userRepo.FindByID(ctx, userID)
	if err == nil && user != nil {
		sess.Shipping.FirstName = user.FirstName
		sess.Shipping.LastName = user.LastName
		sess.Shipping.Email = user.Email
		sess.Shipping.Phone = user.Phone
	}

	//マップに入れた瞬間から他リクエストに見えるので、先にロックする
	sess.mu.Lock()
	defer sess.mu.Unlock()

	u.mu.Lock()
	//開始し直したら前のセッションは破棄
	u.sessions[userID] = sess
	u.mu.Unlock()

	return u.toResponse(sess, subtotal), nil
}

// 現在の状態を返す。セッションが無ければ404。
// 確定済みセッションは1回だけ返してから破棄する（読み直しで消える）。
func (u *CheckoutUsecase) Get(ctx context.Context, userID int64) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step == StepConfirmation {
		//カートはもう空なので確定時に固定した内訳を返す
		resp := u.toResponse(sess, sess.Quote.Subtotal)
		resp.Quote = sess.Quote

		u.mu.Lock()
		delete(u.sessions, userID)
		u.mu.Unlock()

		return resp, nil
	}

	subtotal, _, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.toResponse(sess, subtotal), nil
}

// 配送先を送信。必須項目が1つでも空ならshippingに留まる。
func (u *CheckoutUsecase) SubmitShipping(ctx context.Context, userID int64, in ShippingInput) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	//ガード判定から遷移まで1回のロックで行う
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepShipping {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, "not in shipping step")
	}

	required := []string{
		in.FirstName, in.LastName, in.Email, in.Phone,
		in.Address, in.City, in.State, in.PostalCode,
	}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing required shipping fields")
		}
	}

	sess.Shipping = in
	sess.Step = StepPayment

	subtotal, _, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.toResponse(sess, subtotal), nil
}

// 支払い方法を送信。codはカード情報不要、cardは全項目必須。
func (u *CheckoutUsecase) SubmitPayment(ctx context.Context, userID int64, in PaymentInput) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepPayment {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, "not in payment step")
	}

	switch model.PaymentMethod(in.Method) {
	case model.PaymentMethodCOD:
		//カード項目は見ない
	case model.PaymentMethodCard:
		required := []string{in.CardName, in.CardNumber, in.ExpMonth, in.ExpYear, in.CVV}
		for _, v := range required {
			if strings.TrimSpace(v) == "" {
				return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing required payment fields")
			}
		}
	default:
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}

	sess.Payment = in
	sess.Step = StepReview

	subtotal, _, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.toResponse(sess, subtotal), nil
}

// プロモコード適用（confirmation前なら何回目のステップでも可、適用は1回だけ）。
func (u *CheckoutUsecase) ApplyPromo(ctx context.Context, userID int64, code string) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step == StepConfirmation {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, "already confirmed")
	}
	if sess.PromoApplied {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "promo already applied")
	}
	if !strings.EqualFold(strings.TrimSpace(code), u.cfg.PromoCode) {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid promo code")
	}

	sess.PromoApplied = true

	subtotal, _, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.toResponse(sess, subtotal), nil
}

// reviewからshippingまたはpaymentへ戻る。入力は保持したまま。
func (u *CheckoutUsecase) Back(ctx context.Context, userID int64, to CheckoutStep) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepReview {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, "can only go back from review")
	}
	if to != StepShipping && to != StepPayment {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid step")
	}

	sess.Step = to

	subtotal, _, err := u.cartSubtotal(ctx, userID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.toResponse(sess, subtotal), nil
}

// SubmitOrder は注文確定。reviewからのみ。
// 失敗したらreviewに留まり、カートはそのまま（再送できるのはここだけ）。
// 成功したらカートを空にし、注文番号を発行してconfirmationへ。
func (u *CheckoutUsecase) SubmitOrder(ctx context.Context, userID int64) (CheckoutResponse, error) {
	sess, err := u.session(userID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	//二度押しはここで直列化される。2回目はconfirmation済みで409になるか、
	//同じIdempotencyKeyで同じ注文が返る。
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.Step != StepReview {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, "not in review step")
	}

	ctx, cancel := context.WithTimeout(ctx, u.cfg.CheckoutTimeout)
	defer cancel()

	var created model.Order

	//注文処理はトランザクション
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, sess.IdempotencyKey)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			created = existing
			return nil
		}

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart empty")
		}

		//確定時に在庫を再チェックして減らす
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		var subtotal int64 = 0

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound || (err == nil && !p.IsActive) {
				return NewHTTPError(http.StatusBadRequest, "invalid")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "out of stock")
			}

			//スナップショット
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: ci.NameSnapshot,
				UnitPriceSnapshot:   ci.UnitPriceSnapshot,
				ImageSnapshot:       ci.ImageSnapshot,
				Quantity:            ci.Quantity,
				CreatedAt:           time.Now(),
			})

			subtotal += ci.UnitPriceSnapshot * ci.Quantity
		}

		quote := ComputeQuote(subtotal, sess.PromoApplied, u.cfg)

		now := time.Now()
		order := model.Order{
			UserID:        userID,
			OrderNumber:   newOrderNumber(u.cfg.OrderNumberPrefix, now),
			Status:        model.OrderStatusPending,
			Subtotal:      quote.Subtotal,
			Discount:      quote.Discount,
			ShippingFee:   quote.ShippingFee,
			TotalPrice:    quote.Total,
			PaymentMethod: model.PaymentMethod(sess.Payment.Method),

			ShippingFirstName:  sess.Shipping.FirstName,
			ShippingLastName:   sess.Shipping.LastName,
			ShippingEmail:      sess.Shipping.Email,
			ShippingPhone:      sess.Shipping.Phone,
			ShippingAddress:    sess.Shipping.Address,
			ShippingCity:       sess.Shipping.City,
			ShippingState:      sess.Shipping.State,
			ShippingPostalCode: sess.Shipping.PostalCode,
			ShippingCountry:    sess.Shipping.Country,

			IdempotencyKey: sess.IdempotencyKey,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時で同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, sess.IdempotencyKey)
			if err2 == nil && found2 {
				created = ex2
				return nil
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		created = order
		return nil
	})

	if err != nil {
		//失敗：reviewのまま、カートもそのまま（rollback済み）
		return CheckoutResponse{}, err
	}

	sess.Step = StepConfirmation
	sess.OrderID = created.ID
	sess.OrderNumber = created.OrderNumber
	sess.Quote = Quote{
		Subtotal:    created.Subtotal,
		Discount:    created.Discount,
		ShippingFee: created.ShippingFee,
		Total:       created.TotalPrice,
	}

	//イベント発行の失敗で注文は巻き戻さない
	if err := u.publisher.PublishOrderPlaced(ctx, created.ID, created.OrderNumber, userID, created.TotalPrice); err != nil {
		log.Printf("order event publish failed: %v", err)
	}

	resp := u.toResponse(sess, created.Subtotal)
	resp.Quote = sess.Quote
	return resp, nil
}

// ページ離脱。セッションを破棄する（カートは触らない）。
func (u *CheckoutUsecase) Abandon(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	u.mu.Lock()
	delete(u.sessions, userID)
	u.mu.Unlock()
	return nil
}

func (u *CheckoutUsecase) session(userID int64) (*checkoutSession, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	u.mu.Lock()
	sess, ok := u.sessions[userID]
	u.mu.Unlock()

	if !ok {
		return nil, NewHTTPError(http.StatusNotFound, "checkout not started")
	}
	return sess, nil
}

// 現在のカート内容から小計を出す（確定前の見積りに使う）。
func (u *CheckoutUsecase) cartSubtotal(ctx context.Context, userID int64) (int64, bool, error) {
	cart, err := u.cartRepo.FindActiveByUserID(ctx, userID)
	if err == repo.ErrNotFound {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return 0, false, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var subtotal int64 = 0
	for _, it := range items {
		subtotal += it.UnitPriceSnapshot * it.Quantity
	}
	return subtotal, len(items) > 0, nil
}

// 呼び出し側がsess.muを握っている前提で、セッションの内容をコピーして返す。
func (u *CheckoutUsecase) toResponse(sess *checkoutSession, subtotal int64) CheckoutResponse {
	return CheckoutResponse{
		Step:         sess.Step,
		Shipping:     sess.Shipping,
		Payment:      maskPayment(sess.Payment),
		PromoApplied: sess.PromoApplied,
		Quote:        ComputeQuote(subtotal, sess.PromoApplied, u.cfg),
		OrderID:      sess.OrderID,
		OrderNumber:  sess.OrderNumber,
	}
}

// カード番号とCVVはレスポンスに出さない（番号は下4桁だけ）。
func maskPayment(p PaymentInput) PaymentInput {
	masked := p
	masked.CVV = ""
	if p.CardNumber != "" {
		masked.CardNumber = "****"
		if n := len(p.CardNumber); n > 4 {
			masked.CardNumber = "****" + p.CardNumber[n-4:]
		}
	}
	return masked
}

// 注文番号はプレフィックス+時刻由来の6桁。グローバル一意はIdempotencyKey側で担保。
func newOrderNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%06d", prefix, now.UnixMilli()%1000000)
}
