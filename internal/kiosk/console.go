package kiosk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/caisse-next/internal/cartsync"
	"github.com/caisse-next/internal/constants"
	"github.com/caisse-next/internal/logger"
	"github.com/caisse-next/internal/models"
	"github.com/caisse-next/internal/remote"

	"go.uber.org/zap"
)

// errQuit 用户请求退出
var errQuit = errors.New("console quit")

// Options 控制台依赖
type Options struct {
	Manager      *cartsync.CartManager
	Agent        *cartsync.Agent
	Checkout     *cartsync.Checkout
	Session      *remote.Session
	Client       *remote.Client
	Connectivity cartsync.Connectivity
	In           io.Reader
	Out          io.Writer
	Logger       *zap.SugaredLogger
}

// Console 收银终端行命令界面；扫码枪解码后的字符串按行输入
type Console struct {
	manager  *cartsync.CartManager
	agent    *cartsync.Agent
	checkout *cartsync.Checkout
	session  *remote.Session
	client   *remote.Client
	conn     cartsync.Connectivity
	in       io.Reader
	out      io.Writer
	log      *zap.SugaredLogger
}

// NewConsole 创建控制台
func NewConsole(opts Options) *Console {
	log := opts.Logger
	if log == nil {
		log = logger.Named("console")
	}
	return &Console{
		manager:  opts.Manager,
		agent:    opts.Agent,
		checkout: opts.Checkout,
		session:  opts.Session,
		client:   opts.Client,
		conn:     opts.Connectivity,
		in:       opts.In,
		out:      opts.Out,
		log:      log,
	}
}

// Name 服务名称
func (c *Console) Name() string {
	return "console"
}

// Start 逐行读取命令，输入结束或 quit 时返回
func (c *Console) Start(ctx context.Context) error {
	if c.in == nil || c.out == nil || c.manager == nil {
		return errors.New("console not initialized")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// 读端可关闭时随退出一并关闭，让阻塞在 Scan 的读协程返回
	if closer, ok := c.in.(io.Closer); ok {
		defer closer.Close()
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	c.printf("caisse prête. Tapez 'help' pour la liste des commandes.\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				c.printf("erreur: %v\n", err)
			}
		}
	}
}

// Stop 无需释放资源
func (c *Console) Stop(ctx context.Context) error {
	_ = ctx
	return nil
}

// Execute 执行一行命令
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c.log.Debugw("console_command", "command", cmd, "args", len(args))

	switch cmd {
	case "help", "?":
		c.help()
		return nil
	case "ls", "list":
		c.list()
		return nil
	case "scan", "add":
		return c.scan(ctx, args)
	case "rm", "remove":
		return c.remove(ctx, args)
	case "qty":
		return c.quantity(ctx, args)
	case "sync":
		return c.sync(ctx)
	case "status":
		c.status()
		return nil
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.logout(ctx, args)
	case "checkout", "pay":
		return c.pay(ctx)
	case "history":
		c.history(ctx)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("commande inconnue %q", cmd)
	}
}

func (c *Console) help() {
	c.printf(`commandes:
  scan <code|-> <prix> <nom...>  ajouter un article
  rm <n>                         retirer l'article n
  qty <n> <quantité>             changer la quantité (0 retire)
  ls                             afficher le panier
  sync                           synchroniser maintenant
  status                         état réseau et session
  login <téléphone>              ouvrir une session
  logout [force]                 fermer la session
  checkout                       payer le panier
  history                        historique des achats
  quit                           quitter
`)
}

// scan 解析 "code prix nom..."，code 为 "-" 表示无条码商品
func (c *Console) scan(ctx context.Context, args []string) error {
	if len(args) < 3 {
		return errors.New("usage: scan <code|-> <prix> <nom...>")
	}
	item, err := parseScan(args)
	if err != nil {
		return err
	}
	added, err := c.manager.AddItem(ctx, item)
	if err != nil {
		return err
	}
	c.printf("+ %s x%d  %s\n", added.Nom, added.Quantity, added.LineTotal().StringFixed(2))
	c.printTotal()
	return nil
}

func parseScan(args []string) (models.CartItem, error) {
	prix, err := models.ParseMoney(args[1])
	if err != nil {
		return models.CartItem{}, fmt.Errorf("prix invalide %q", args[1])
	}
	code := args[0]
	if code == "-" {
		code = ""
	}
	return models.CartItem{
		Code:     code,
		Nom:      strings.Join(args[2:], " "),
		Prix:     prix,
		Quantity: 1,
	}, nil
}

func (c *Console) remove(ctx context.Context, args []string) error {
	item, err := c.pick(args)
	if err != nil {
		return err
	}
	if err := c.manager.RemoveItem(ctx, item); err != nil {
		return err
	}
	c.printf("- %s\n", item.Nom)
	c.printTotal()
	return nil
}

func (c *Console) quantity(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: qty <n> <quantité>")
	}
	item, err := c.pick(args[:1])
	if err != nil {
		return err
	}
	qty, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("quantité invalide %q", args[1])
	}
	updated, err := c.manager.UpdateQuantity(ctx, item, qty)
	if err != nil {
		return err
	}
	if qty < 1 {
		c.printf("- %s\n", item.Nom)
	} else {
		c.printf("= %s x%d\n", updated.Nom, updated.Quantity)
	}
	c.printTotal()
	return nil
}

// pick 按展示序号（从 1 开始）选择商品
func (c *Console) pick(args []string) (models.CartItem, error) {
	if len(args) < 1 {
		return models.CartItem{}, errors.New("numéro d'article manquant")
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return models.CartItem{}, fmt.Errorf("numéro invalide %q", args[0])
	}
	items := c.manager.DisplayItems()
	if idx < 1 || idx > len(items) {
		return models.CartItem{}, cartsync.ErrCartItemNotFound
	}
	return items[idx-1], nil
}

func (c *Console) list() {
	items := c.manager.DisplayItems()
	if len(items) == 0 {
		c.printf("panier vide\n")
		return
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tcode\tnom\tprix\tqté\ttotal")
	for idx, item := range items {
		code := item.Code
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n", idx+1, code, item.Nom, item.Prix.String(), item.Quantity, item.LineTotal().StringFixed(2))
	}
	_ = w.Flush()
	c.printTotal()
}

func (c *Console) sync(ctx context.Context) error {
	reconcile := c.manager.Reconcile
	if c.agent != nil {
		reconcile = c.agent.Trigger
	}
	result, err := reconcile(ctx)
	if err != nil {
		return err
	}
	switch result.Outcome {
	case constants.ReconcileOutcomePublished:
		c.printf("synchronisé: %d article(s), %d opération(s) rejouée(s)\n", len(result.Items), result.Drained)
	case constants.ReconcileOutcomeOffline:
		c.printf("hors ligne: %d opération(s) en attente\n", c.manager.PendingCount())
	default:
		c.printf("serveur injoignable: %d opération(s) en attente\n", c.manager.PendingCount())
	}
	return nil
}

func (c *Console) status() {
	network := "hors ligne"
	if c.conn != nil && c.conn.IsOnline() {
		network = "en ligne"
	}
	account := "invité"
	if c.session != nil && c.session.CurrentUser() != nil {
		account = c.session.Phone()
		if account == "" {
			account = fmt.Sprintf("client #%d", c.session.CurrentUser().ID)
		}
	}
	c.printf("réseau: %s | session: %s | en attente: %d\n", network, account, c.manager.PendingCount())
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: login <téléphone>")
	}
	if c.session == nil || c.client == nil {
		return errors.New("session indisponible")
	}
	// 已有会话时先交还上一位顾客的购物车，未同步的操作不能带给下一位
	if c.session.CurrentUser() != nil {
		if err := c.manager.Release(ctx, false); err != nil {
			return fmt.Errorf("%w, faites 'logout force' pour abandonner", err)
		}
	}
	user, err := c.session.Login(ctx, c.client, strings.Join(args, ""))
	if err != nil {
		return err
	}
	if user == nil {
		return remote.ErrInvalidToken
	}
	c.printf("bienvenue, client #%d\n", user.ID)
	return c.sync(ctx)
}

// logout 先发布待同步操作；"logout force" 丢弃未同步的操作
func (c *Console) logout(ctx context.Context, args []string) error {
	force := len(args) > 0 && strings.EqualFold(args[0], "force")
	if err := c.manager.Release(ctx, force); err != nil {
		return fmt.Errorf("%w, faites 'logout force' pour abandonner", err)
	}
	if c.session != nil {
		if err := c.session.Clear(); err != nil {
			return err
		}
	}
	c.printf("session fermée\n")
	return nil
}

func (c *Console) pay(ctx context.Context) error {
	if c.checkout == nil {
		return errors.New("paiement indisponible")
	}
	purchase, err := c.checkout.Checkout(ctx)
	if err != nil {
		return err
	}
	c.printf("payé: commande %s, %d article(s), %s\n", purchase.OrderNo, purchase.ItemCount, purchase.TotalAmount.String())
	return nil
}

func (c *Console) history(ctx context.Context) {
	if c.checkout == nil {
		c.printf("historique indisponible\n")
		return
	}
	purchases, fromCache := c.checkout.History(ctx)
	if len(purchases) == 0 {
		c.printf("aucun achat\n")
		return
	}
	if fromCache {
		c.printf("(historique local, hors ligne)\n")
	}
	for _, purchase := range purchases {
		c.printf("%s  %s  %d article(s)  %s\n",
			purchase.PurchasedAt.Local().Format("2006-01-02 15:04"),
			purchase.OrderNo,
			purchase.ItemCount,
			purchase.TotalAmount.String(),
		)
	}
}

func (c *Console) printTotal() {
	c.printf("total: %s (%d en attente)\n", c.manager.Total().StringFixed(2), c.manager.PendingCount())
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.out, format, args...)
}
